// Package domain defines the data shapes read from the water-consumption
// reporting view and the JSON documents built from them.
package domain

import (
	"time"
)

// ISODateLayout renders naive timestamps the way the reporting clients expect
// (no zone designator).
const (
	ISODateLayout      = "2006-01-02T15:04:05"
	ISODateLayoutMicro = "2006-01-02T15:04:05.000000"
)

// ConsumptionRecord is one row of the reporting view. Records carry no
// identity beyond their position in the ordered result set.
//
// Fields:
//   - ConsumptionDate: day (or instant) the reading applies to.
//   - WaterConsumption: measured value; nil when the view reports NULL.
//   - Status: free-form status label; nil when NULL.
type ConsumptionRecord struct {
	ConsumptionDate  time.Time `gorm:"column:consumption_date;type:date;not null"`
	WaterConsumption *float64  `gorm:"column:water_consumption"`
	Status           *string   `gorm:"column:status;type:varchar(64)"`
}

// TableName returns the default reporting view name. Queries use the
// configured view; this is only consulted by fixtures that materialize the
// view as a table.
func (ConsumptionRecord) TableName() string { return "WATER_CONSUMPTION_DATA_V" }

// ConsumptionSeries is the chart-friendly projection of a page of records:
// three parallel sequences of equal length, in query order.
type ConsumptionSeries struct {
	XValues  []string   `json:"xValues"  example:"2024-01-01T00:00:00"`
	YValues  []*float64 `json:"yValues"`
	Statuses []*string  `json:"statuses"`
}

// NewConsumptionSeries zips records into a ConsumptionSeries without
// reordering them. The slices are non-nil so an empty page encodes as [].
func NewConsumptionSeries(records []ConsumptionRecord) ConsumptionSeries {
	s := ConsumptionSeries{
		XValues:  make([]string, 0, len(records)),
		YValues:  make([]*float64, 0, len(records)),
		Statuses: make([]*string, 0, len(records)),
	}
	for _, r := range records {
		s.XValues = append(s.XValues, FormatISO(r.ConsumptionDate))
		s.YValues = append(s.YValues, r.WaterConsumption)
		s.Statuses = append(s.Statuses, r.Status)
	}
	return s
}

// Len reports the number of points in the series.
func (s ConsumptionSeries) Len() int { return len(s.XValues) }

// FormatISO renders t as an ISO-8601 local date-time. Sub-second precision
// is emitted as microseconds only when present.
func FormatISO(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format(ISODateLayout)
	}
	return t.Format(ISODateLayoutMicro)
}

// Row is a single view row keyed by the column names the database reports.
type Row map[string]any
