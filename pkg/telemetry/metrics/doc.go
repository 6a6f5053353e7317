// Package metrics provides Prometheus metrics collection for Pulse.
//
// # Metrics Categories
//
//   - Request Metrics: HTTP request count and duration by route
//   - Admission Metrics: Allowed/blocked decisions and fail-open store errors
//   - Backend Metrics: Attempts, latency, availability and exhausted dispatches
//   - Realtime Metrics: Active connections/users and delivery outcomes
//
// # Usage
//
//	collector := metrics.NewCollector("pulse", nil)
//	collector.RecordAdmission("allowed")
//	collector.RecordBackendAttempt("openai", "success", 800*time.Millisecond)
//	mux.Handle("/metrics", collector.Handler())
//
// A nil *Collector is valid and records nothing.
package metrics
