// Package telemetry groups the observability packages used by Pulse.
//
// # Components
//
//   - logging: slog handler with context fields and credential redaction
//   - metrics: Prometheus collector for admission, backends and sessions
//   - tracing: OpenTelemetry spans around dispatch and backend attempts
//   - health: liveness, readiness and version endpoints
package telemetry
