package repo

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-water-backend/internal/domain"
)

const testView = "WATER_CONSUMPTION_DATA_V"

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// seedDays inserts n records with consecutive dates starting at 2024-01-01.
// Record i (1-based) has WaterConsumption == i. Rows are inserted newest
// first so ordering cannot come from insertion order.
func seedDays(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]domain.ConsumptionRecord, 0, n)
	for i := n; i >= 1; i-- {
		v := float64(i)
		s := "OK"
		if i%10 == 0 {
			s = "ESTIMATED"
		}
		recs = append(recs, domain.ConsumptionRecord{
			ConsumptionDate:  base.AddDate(0, 0, i-1),
			WaterConsumption: &v,
			Status:           &s,
		})
	}
	if err := db.CreateInBatches(recs, 100).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}
