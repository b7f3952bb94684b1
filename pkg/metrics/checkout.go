package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout commits and promo redemptions.
type CheckoutMetrics struct {
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	redemptions *prometheus.CounterVec
}

// NewCheckoutMetrics registers checkout metrics on reg. A nil registerer yields no-op metrics.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_total",
		Help: "Checkout commits by outcome code.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Checkout commit latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_promo_redemptions_total",
		Help: "Promo codes consumed by committed orders.",
	}, []string{"code"})
	reg.MustRegister(outcomes, duration, redemptions)
	return &CheckoutMetrics{
		outcomes:    outcomes,
		duration:    duration,
		redemptions: redemptions,
	}
}

// ObserveCommit records one checkout attempt.
func (c *CheckoutMetrics) ObserveCommit(outcome string, elapsed time.Duration) {
	if c == nil || c.outcomes == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.outcomes.WithLabelValues(label).Inc()
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncPromoRedemption counts a promo consumed by a committed order.
func (c *CheckoutMetrics) IncPromoRedemption(code string) {
	if c == nil || c.redemptions == nil {
		return
	}
	c.redemptions.WithLabelValues(normalizeLabel(code)).Inc()
}
