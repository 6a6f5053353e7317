package metrics

import "github.com/prometheus/client_golang/prometheus"

// AdmissionMetrics tracks sliding-window admission decisions.
//
// Metrics:
//   - pulse_admission_decisions_total: Decisions by outcome (allowed, blocked)
//   - pulse_admission_store_errors_total: Store failures answered by failing open
type AdmissionMetrics struct {
	decisions   *prometheus.CounterVec
	storeErrors prometheus.Counter
}

// NewAdmissionMetrics creates and registers admission metrics.
func NewAdmissionMetrics(namespace string, registry *prometheus.Registry) *AdmissionMetrics {
	am := &AdmissionMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_decisions_total",
				Help:      "Total admission decisions by outcome",
			},
			[]string{"decision"},
		),
		storeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admission_store_errors_total",
				Help:      "Counter store failures that caused a fail-open admission",
			},
		),
	}

	registry.MustRegister(am.decisions, am.storeErrors)
	return am
}

// RecordDecision increments the decision counter.
func (am *AdmissionMetrics) RecordDecision(decision string) {
	am.decisions.WithLabelValues(decision).Inc()
}

// RecordStoreError increments the store error counter.
func (am *AdmissionMetrics) RecordStoreError() {
	am.storeErrors.Inc()
}
