package metrics

import "github.com/prometheus/client_golang/prometheus"

// SurgeMetrics exports the state of the surge pricing engine per zone.
type SurgeMetrics struct {
	multiplier *prometheus.GaugeVec
	fallback   *prometheus.CounterVec
	recompute  *prometheus.CounterVec
}

// NewSurgeMetrics registers the surge metrics on the provided registerer.
func NewSurgeMetrics(reg prometheus.Registerer) *SurgeMetrics {
	if reg == nil {
		return &SurgeMetrics{}
	}
	multiplier := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "surge_multiplier",
		Help: "Current surge multiplier applied to the zone base fee.",
	}, []string{"zone"})
	fallback := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surge_fallback_total",
		Help: "Recomputations that fell back to the base fee because demand was unavailable.",
	}, []string{"zone"})
	recompute := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surge_recompute_total",
		Help: "Surge multiplier recomputations.",
	}, []string{"zone"})
	reg.MustRegister(multiplier, fallback, recompute)
	return &SurgeMetrics{
		multiplier: multiplier,
		fallback:   fallback,
		recompute:  recompute,
	}
}

// ObserveRecompute records a recomputation and the resulting multiplier.
func (s *SurgeMetrics) ObserveRecompute(zone string, multiplier float64, fallback bool) {
	if s == nil || s.multiplier == nil {
		return
	}
	zone = normalizeLabel(zone)
	s.recompute.WithLabelValues(zone).Inc()
	s.multiplier.WithLabelValues(zone).Set(multiplier)
	if fallback {
		s.fallback.WithLabelValues(zone).Inc()
	}
}
