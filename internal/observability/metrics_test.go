package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveConnect_CountsByDriverAndResult(t *testing.T) {
	before := testutil.ToFloat64(dbConnects.WithLabelValues("sqlite", "ok"))
	ObserveConnect("sqlite", "ok", 5*time.Millisecond)
	ObserveConnect("sqlite", "ok", 7*time.Millisecond)
	if got := testutil.ToFloat64(dbConnects.WithLabelValues("sqlite", "ok")); got != before+2 {
		t.Fatalf("db_connect_total = %v; want %v", got, before+2)
	}
}

func TestObserveQuery_CountsByOpAndResult(t *testing.T) {
	before := testutil.ToFloat64(dbQueries.WithLabelValues("page", "error"))
	ObserveQuery("page", Result(errors.New("boom")), time.Millisecond)
	if got := testutil.ToFloat64(dbQueries.WithLabelValues("page", "error")); got != before+1 {
		t.Fatalf("db_queries_total = %v; want %v", got, before+1)
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "ok" || Result(errors.New("x")) != "error" {
		t.Fatal("unexpected result labels")
	}
}
