// Package repo implements data access for the water-consumption reporting
// view. This file provides the two read queries behind the public API. Both
// issue exactly one statement and scan positionally, since Oracle reports
// column names in upper case.
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-water-backend/internal/domain"
)

// consumptionColumns is the projection used by the paginated query.
const consumptionColumns = "consumption_date, water_consumption, status"

// timeLayouts are tried, in order, when a driver hands back dates as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ListConsumptionPage returns at most limit rows of view ordered by date
// ascending, skipping offset rows. The dialect renders the pagination clause
// (OFFSET n ROWS FETCH NEXT m ROWS ONLY on Oracle, LIMIT/OFFSET on SQLite).
func ListConsumptionPage(ctx context.Context, db *gorm.DB, view string, offset, limit int) ([]domain.ConsumptionRecord, error) {
	rows, err := db.WithContext(ctx).
		Table(view).
		Select(consumptionColumns).
		Order("consumption_date ASC").
		Offset(offset).
		Limit(limit).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ConsumptionRecord, 0, limit)
	for rows.Next() {
		var (
			rawDate any
			value   sql.NullFloat64
			status  sql.NullString
		)
		if err := rows.Scan(&rawDate, &value, &status); err != nil {
			return nil, err
		}
		day, err := asTime(rawDate)
		if err != nil {
			return nil, err
		}
		rec := domain.ConsumptionRecord{ConsumptionDate: day}
		if value.Valid {
			v := value.Float64
			rec.WaterConsumption = &v
		}
		if status.Valid {
			s := status.String
			rec.Status = &s
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FetchAllRows returns every row of view as a column-name → value map, in
// the order the database returns them. The result is unbounded.
func FetchAllRows(ctx context.Context, db *gorm.DB, view string) ([]domain.Row, error) {
	rows, err := db.WithContext(ctx).Table(view).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			row[c] = jsonValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// jsonValue normalizes driver values for JSON encoding.
func jsonValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return domain.FormatISO(t)
	default:
		return t
	}
}

// asTime accepts the date representations drivers commonly return.
func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	case nil:
		return time.Time{}, fmt.Errorf("consumption_date is NULL")
	default:
		return time.Time{}, fmt.Errorf("unsupported consumption_date type %T", v)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable consumption_date %q", s)
}
