package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutboxMetricsCountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("order.created", OutboxResultPublished)
	m.Inc("order.created", OutboxResultPublished)
	m.Inc("order.created", OutboxResultRetry)
	m.Inc("", OutboxResultTerminal)

	if got := testutil.ToFloat64(m.results.WithLabelValues("order.created", OutboxResultPublished)); got != 2 {
		t.Fatalf("expected 2 published, got %f", got)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("order.created", OutboxResultRetry)); got != 1 {
		t.Fatalf("expected 1 retry, got %f", got)
	}
	if got := testutil.ToFloat64(m.results.WithLabelValues("unknown", OutboxResultTerminal)); got != 1 {
		t.Fatalf("expected blank event type to be normalized, got %f", got)
	}
	if n := testutil.CollectAndCount(m.results); n != 3 {
		t.Fatalf("expected 3 series, got %d", n)
	}
}

func TestNilOutboxMetricsAreSafe(t *testing.T) {
	var m *OutboxMetrics
	m.Inc("order.created", OutboxResultPublished)
	NewOutboxMetrics(nil).Inc("order.created", OutboxResultRetry)
}
