package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutboxResultPublished = "published"
	OutboxResultRetry     = "retry"
	OutboxResultTerminal  = "terminal"
)

// OutboxMetrics counts publisher outcomes per event type.
type OutboxMetrics struct {
	results *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox publisher metrics. A nil registerer yields no-op metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(results)
	return &OutboxMetrics{results: results}
}

// Inc records one handled outbox row.
func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
