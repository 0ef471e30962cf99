package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCustodyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCustodyMetrics(reg)

	m.IncTransition("mark_picked_up")
	m.IncTransition("mark_picked_up")
	m.IncRejection("mark_delivered", "STATE_CONFLICT")
	m.ObserveDuration("mark_picked_up", 25*time.Millisecond)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("mark_picked_up")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("mark_delivered", "STATE_CONFLICT")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
}

func TestCustodyMetrics_NilSafe(t *testing.T) {
	var m *CustodyMetrics
	m.IncTransition("noop")
	m.IncRejection("noop", "noop")
	m.ObserveDuration("noop", time.Second)

	empty := NewCustodyMetrics(nil)
	empty.IncTransition("noop")
}

func TestWorkerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)

	m.IncProcessed("return.requested")
	m.IncSkipped("return.requested")
	m.IncFailed("order.delivered")

	if got := testutil.ToFloat64(m.processed.WithLabelValues("return.requested")); got != 1 {
		t.Fatalf("expected 1 processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.skipped.WithLabelValues("return.requested")); got != 1 {
		t.Fatalf("expected 1 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(m.failed.WithLabelValues("order.delivered")); got != 1 {
		t.Fatalf("expected 1 failed, got %v", got)
	}
}
