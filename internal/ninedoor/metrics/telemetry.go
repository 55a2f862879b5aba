package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TelemetryMetrics records C6 ring/ingest observability. A nil *TelemetryMetrics
// is valid and every method is a no-op, so callers never branch on IsEnabled.
type TelemetryMetrics struct {
	appends      *prometheus.CounterVec
	drops        prometheus.Counter
	backpressure prometheus.Counter
	latencyMs    *prometheus.HistogramVec
	queueDepth   prometheus.Gauge
}

// NewTelemetryMetrics builds the C6 metrics from reg, or returns nil if reg
// is nil (metrics disabled).
func NewTelemetryMetrics(reg *prometheus.Registry) *TelemetryMetrics {
	if reg == nil {
		return nil
	}
	return &TelemetryMetrics{
		appends: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "telemetry",
			Name:      "appends_total",
			Help:      "Telemetry ring appends by worker/device id.",
		}, []string{"ring"}),
		drops: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "telemetry",
			Name:      "drops_total",
			Help:      "Bytes-dropping ring overwrites.",
		}),
		backpressure: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "ninedoor",
			Subsystem: "ingest",
			Name:      "backpressure_total",
			Help:      "Ingest back-pressure refusals.",
		}),
		latencyMs: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ninedoor",
			Subsystem: "ingest",
			Name:      "latency_ms",
			Help:      "Per-frame ingest latency in milliseconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "ninedoor",
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Current pump queue depth.",
		}),
	}
}

func (m *TelemetryMetrics) RecordAppend(ring string) {
	if m == nil {
		return
	}
	m.appends.WithLabelValues(ring).Inc()
}

func (m *TelemetryMetrics) RecordDrop() {
	if m == nil {
		return
	}
	m.drops.Inc()
}

func (m *TelemetryMetrics) RecordBackpressure() {
	if m == nil {
		return
	}
	m.backpressure.Inc()
}

func (m *TelemetryMetrics) ObserveLatency(op string, ms float64) {
	if m == nil {
		return
	}
	m.latencyMs.WithLabelValues(op).Observe(ms)
}

func (m *TelemetryMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
