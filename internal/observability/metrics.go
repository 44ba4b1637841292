// Package observability wires tracing and metrics shared across layers.
//
// This file holds Prometheus collectors for database activity. Labels are
// bounded: driver is "oracle" or "sqlite", op names a repository call, and
// result is "ok" or "error".
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbConnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_connect_total",
			Help: "Database connection attempts by driver and result.",
		},
		[]string{"driver", "result"},
	)

	dbConnectLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_connect_duration_seconds",
			Help:    "Time to open and ping a database connection.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)

	dbQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Repository queries by operation and result.",
		},
		[]string{"op", "result"},
	)

	dbQueryLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Repository query latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(dbConnects, dbConnectLat, dbQueries, dbQueryLat)
}

// ObserveConnect records one connection attempt.
func ObserveConnect(driver, result string, d time.Duration) {
	dbConnects.WithLabelValues(driver, result).Inc()
	dbConnectLat.WithLabelValues(driver).Observe(d.Seconds())
}

// ObserveQuery records one repository call.
func ObserveQuery(op, result string, d time.Duration) {
	dbQueries.WithLabelValues(op, result).Inc()
	dbQueryLat.WithLabelValues(op).Observe(d.Seconds())
}

// Result maps an error to the metric result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
