package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks live sessions and submission outcomes.
type CheckoutMetrics struct {
	sessions    prometheus.Gauge
	submissions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_sessions_active",
		Help: "Checkout sessions currently held in memory.",
	})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(sessions, submissions)
	return &CheckoutMetrics{sessions: sessions, submissions: submissions}
}

// SetActiveSessions records the number of live sessions.
func (c *CheckoutMetrics) SetActiveSessions(n int) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Set(float64(n))
}

// IncSubmission counts a submission attempt with the given outcome
// ("success" or "failure").
func (c *CheckoutMetrics) IncSubmission(outcome string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
