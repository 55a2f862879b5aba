package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuditMetrics records C8 journal/decisions/replay activity.
type AuditMetrics struct {
	appended   *prometheus.CounterVec
	truncated  *prometheus.CounterVec
	replays    prometheus.Counter
	replayLast prometheus.Gauge
}

// NewAuditMetrics builds the C8 metrics, or nil when reg is nil.
func NewAuditMetrics(reg *prometheus.Registry) *AuditMetrics {
	if reg == nil {
		return nil
	}
	return &AuditMetrics{
		appended: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Audit ring entries appended, by ring.",
		}, []string{"ring"}),
		truncated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "audit",
			Name:      "truncated_total",
			Help:      "Audit ring truncations dropping oldest entries, by ring.",
		}, []string{"ring"}),
		replays: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "replay",
			Name:      "runs_total",
			Help:      "Replay invocations.",
		}),
		replayLast: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "ninedoor",
			Subsystem: "replay",
			Name:      "last_entries",
			Help:      "Entry count replayed in the most recent run.",
		}),
	}
}

func (m *AuditMetrics) RecordAppend(ring string) {
	if m == nil {
		return
	}
	m.appended.WithLabelValues(ring).Inc()
}

func (m *AuditMetrics) RecordTruncate(ring string) {
	if m == nil {
		return
	}
	m.truncated.WithLabelValues(ring).Inc()
}

func (m *AuditMetrics) RecordReplay(entries int) {
	if m == nil {
		return
	}
	m.replays.Inc()
	m.replayLast.Set(float64(entries))
}
