package provider

import "github.com/cohesix/ninedoor/internal/ninedoor/metrics"

// Metrics bundles the metrics facades the providers in this package touch,
// so constructors take one optional argument instead of three. A nil
// *Metrics (or any nil field within it) degrades to the metrics package's
// own nil-receiver no-op convention.
type Metrics struct {
	Telemetry *metrics.TelemetryMetrics
	Policy    *metrics.PolicyMetrics
	Audit     *metrics.AuditMetrics
}

func (m *Metrics) telemetry() *metrics.TelemetryMetrics {
	if m == nil {
		return nil
	}
	return m.Telemetry
}

func (m *Metrics) policy() *metrics.PolicyMetrics {
	if m == nil {
		return nil
	}
	return m.Policy
}
