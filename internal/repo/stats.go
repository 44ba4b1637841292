// Package repo implements data access for the water-consumption reporting
// view. This file provides the queries behind the readiness probe: a
// one-row read by default, and optional aggregate statistics.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ConsumptionStats returns the number of rows in view and the latest
// consumption_date among them. When the view is empty, latest is nil.
//
// It executes two queries that scan the whole view, so readiness only uses
// it when explicitly enabled. The maximum is read with ORDER BY ...
// LIMIT 1 rather than MAX() so drivers keep returning a typed date.
func ConsumptionStats(ctx context.Context, db *gorm.DB, view string) (count int64, latest *time.Time, err error) {
	if err = db.WithContext(ctx).Table(view).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	rows, err := db.WithContext(ctx).
		Table(view).
		Select("consumption_date").
		Order("consumption_date DESC").
		Limit(1).
		Rows()
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return count, nil, rows.Err()
	}
	var raw any
	if err = rows.Scan(&raw); err != nil {
		return 0, nil, err
	}
	day, err := asTime(raw)
	if err != nil {
		return 0, nil, err
	}
	return count, &day, nil
}

// ViewHasRows reads at most one row of view without ordering, so it stays
// cheap on large views (FETCH NEXT 1 ROWS ONLY on Oracle).
func ViewHasRows(ctx context.Context, db *gorm.DB, view string) (bool, error) {
	rows, err := db.WithContext(ctx).
		Table(view).
		Select("consumption_date").
		Limit(1).
		Rows()
	if err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}
