package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestTripCounters(t *testing.T) {
	m := New()
	m.TripStarted()
	m.TripStarted()
	m.TripCompleted(decimal.RequireFromString("3.25"))
	m.TripCancelled("duplicate_tap")

	if got := testutil.ToFloat64(m.tripsStarted); got != 2 {
		t.Fatalf("expected 2 started, got %v", got)
	}
	if got := testutil.ToFloat64(m.fareRevenue); got != 3.25 {
		t.Fatalf("expected revenue 3.25, got %v", got)
	}
	if got := testutil.ToFloat64(m.tripsCancelled.WithLabelValues("duplicate_tap")); got != 1 {
		t.Fatalf("expected 1 cancellation, got %v", got)
	}
}

func TestLedgerEntryKinds(t *testing.T) {
	m := New()
	m.LedgerEntry(decimal.RequireFromString("10"))
	m.LedgerEntry(decimal.RequireFromString("-2.25"))
	m.LedgerEntry(decimal.RequireFromString("-1"))

	if got := testutil.ToFloat64(m.ledgerEntries.WithLabelValues("debit")); got != 2 {
		t.Fatalf("expected 2 debits, got %v", got)
	}
	if got := testutil.ToFloat64(m.ledgerEntries.WithLabelValues("credit")); got != 1 {
		t.Fatalf("expected 1 credit, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.TripStarted()
	m.ObserveHTTP("GET", "/api/health", 200, time.Millisecond)
	if m.Handler() == nil {
		t.Fatalf("expected fallback handler")
	}
}
