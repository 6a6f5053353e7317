package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Availability gauge values for pulse_backend_availability.
const (
	AvailabilityHealthy   = 0
	AvailabilityDegraded  = 1
	AvailabilityUnhealthy = 2
)

// Collector is the single entry point for recording Prometheus metrics in Pulse.
// Every Record method is safe to call on a nil *Collector, which lets
// components run without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	requestMetrics   *RequestMetrics
	admissionMetrics *AdmissionMetrics
	backendMetrics   *BackendMetrics
	realtimeMetrics  *RealtimeMetrics
}

// NewCollector creates a collector that registers every metric under
// namespace in registry. If registry is nil a fresh registry is created
// with the Go runtime and process collectors attached.
//
// Example:
//
//	collector := metrics.NewCollector("pulse", nil)
//	mux.Handle("/metrics", collector.Handler())
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if namespace == "" {
		namespace = "pulse"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		registry:         registry,
		requestMetrics:   NewRequestMetrics(namespace, registry),
		admissionMetrics: NewAdmissionMetrics(namespace, registry),
		backendMetrics:   NewBackendMetrics(namespace, registry),
		realtimeMetrics:  NewRealtimeMetrics(namespace, registry),
	}
}

// RecordHTTPRequest records a completed HTTP request.
//
// Parameters:
//   - route: Route pattern (e.g., "/v1/chat")
//   - status: HTTP status code
//   - duration: Total request duration
func (c *Collector) RecordHTTPRequest(route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.requestMetrics.RecordRequest(route, status, duration)
}

// RecordAdmission records an admission decision: "allowed" or "blocked".
func (c *Collector) RecordAdmission(decision string) {
	if c == nil {
		return
	}
	c.admissionMetrics.RecordDecision(decision)
}

// RecordAdmissionStoreError records a counter store failure that was
// answered by failing open.
func (c *Collector) RecordAdmissionStoreError() {
	if c == nil {
		return
	}
	c.admissionMetrics.RecordStoreError()
}

// RecordBackendAttempt records a single backend attempt.
//
// Parameters:
//   - backend: Backend name
//   - outcome: "success", "recoverable" or "fatal"
//   - latency: Attempt duration
func (c *Collector) RecordBackendAttempt(backend, outcome string, latency time.Duration) {
	if c == nil {
		return
	}
	c.backendMetrics.RecordAttempt(backend, outcome, latency)
}

// UpdateBackendAvailability sets the availability gauge for a backend.
// Use the Availability* constants.
func (c *Collector) UpdateBackendAvailability(backend string, value int) {
	if c == nil {
		return
	}
	c.backendMetrics.UpdateAvailability(backend, value)
}

// RecordDispatchExhausted records a dispatch where every backend failed.
func (c *Collector) RecordDispatchExhausted() {
	if c == nil {
		return
	}
	c.backendMetrics.RecordExhausted()
}

// UpdateSessions sets the active connection and user gauges.
func (c *Collector) UpdateSessions(connections, users int) {
	if c == nil {
		return
	}
	c.realtimeMetrics.UpdateSessions(connections, users)
}

// RecordDelivery records an outbound message of the given kind.
func (c *Collector) RecordDelivery(kind string) {
	if c == nil {
		return
	}
	c.realtimeMetrics.RecordDelivery(kind)
}

// RecordDeliveryFailure records a message that could not be queued or written.
func (c *Collector) RecordDeliveryFailure() {
	if c == nil {
		return
	}
	c.realtimeMetrics.RecordFailure()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
