package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PolicyMetrics records C4/C7 decision outcomes.
type PolicyMetrics struct {
	decisions *prometheus.CounterVec
	pressure  *prometheus.CounterVec
}

// NewPolicyMetrics builds the C4/C7 metrics, or nil when reg is nil.
func NewPolicyMetrics(reg *prometheus.Registry) *PolicyMetrics {
	if reg == nil {
		return nil
	}
	return &PolicyMetrics{
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "policy",
			Name:      "decisions_total",
			Help:      "Access policy and approval decisions by outcome.",
		}, []string{"outcome"}),
		pressure: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "proc",
			Name:      "pressure_total",
			Help:      "Cumulative /proc/pressure/* counters.",
		}, []string{"kind"}),
	}
}

func (m *PolicyMetrics) RecordDecision(outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// RecordPressure increments a named pressure counter (busy, quota, cut, policy).
func (m *PolicyMetrics) RecordPressure(kind string) {
	if m == nil {
		return
	}
	m.pressure.WithLabelValues(kind).Inc()
}
