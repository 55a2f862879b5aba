// Package metrics wraps prometheus/client_golang behind a small
// enable/disable facade, following the shape dittofs's pkg/metrics/prometheus
// package assumes but does not itself define: a process-wide registry that
// every domain metrics struct is built from via promauto.With(reg), and
// whose constructors return nil when metrics are disabled so every RecordXxx
// call site can stay unconditional (nil-receiver methods are no-ops).
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables the process-wide metrics registry. Calling it more
// than once replaces the previous registry (used by tests that want an
// isolated registry per case).
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// Disable turns metrics collection off; GetRegistry then returns nil and
// every domain constructor built from it returns a nil (no-op) receiver.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	enabled = false
	registry = nil
}

// IsEnabled reports whether the registry is active.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the active registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns an http.Handler serving the registry in the Prometheus
// exposition format, or nil when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
