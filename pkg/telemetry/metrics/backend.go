package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks answer backend health and performance.
//
// Metrics:
//   - pulse_backend_attempts_total: Attempts by backend and outcome
//   - pulse_backend_latency_seconds: Attempt latency
//   - pulse_backend_availability: 0=healthy, 1=degraded, 2=unhealthy
//   - pulse_dispatch_exhausted_total: Dispatches where every backend failed
type BackendMetrics struct {
	attempts     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	availability *prometheus.GaugeVec
	exhausted    prometheus.Counter
}

// NewBackendMetrics creates and registers backend metrics with the provided registry.
func NewBackendMetrics(namespace string, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_attempts_total",
				Help:      "Total backend attempts by outcome",
			},
			[]string{"backend", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_latency_seconds",
				Help:      "Backend attempt latency in seconds",
				// Optimized for LLM latencies (100ms - 30s)
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"backend"},
		),

		availability: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_availability",
				Help:      "Backend availability (0=healthy, 1=degraded, 2=unhealthy)",
			},
			[]string{"backend"},
		),

		exhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_exhausted_total",
				Help:      "Dispatches where every backend failed and the fallback message was returned",
			},
		),
	}

	registry.MustRegister(
		bm.attempts,
		bm.latency,
		bm.availability,
		bm.exhausted,
	)

	return bm
}

// RecordAttempt records one backend attempt.
func (bm *BackendMetrics) RecordAttempt(backend, outcome string, latency time.Duration) {
	bm.attempts.WithLabelValues(backend, outcome).Inc()
	bm.latency.WithLabelValues(backend).Observe(latency.Seconds())
}

// UpdateAvailability sets the availability gauge.
func (bm *BackendMetrics) UpdateAvailability(backend string, value int) {
	bm.availability.WithLabelValues(backend).Set(float64(value))
}

// RecordExhausted increments the exhausted counter.
func (bm *BackendMetrics) RecordExhausted() {
	bm.exhausted.Inc()
}
