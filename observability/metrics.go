package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording runtime
// calls per module and method.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "taskchain",
				Subsystem: "module",
				Name:      "calls_total",
				Help:      "Total runtime calls segmented by module, method, and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "taskchain",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total failed runtime calls segmented by module, method, and reason.",
			}, []string{"module", "method", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "taskchain",
				Subsystem: "module",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for runtime calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a runtime call. A non-empty reason marks the
// call as failed.
func (m *moduleMetrics) Observe(module, method, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if reason = strings.TrimSpace(reason); reason != "" {
		outcome = "error"
		m.errors.WithLabelValues(module, method, reason).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}
