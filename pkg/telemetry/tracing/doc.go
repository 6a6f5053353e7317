// Package tracing provides OpenTelemetry distributed tracing for Pulse.
//
// Spans are exported over OTLP gRPC when enabled. When disabled, or when a
// component holds a nil *Tracer, span creation is a noop.
//
// # Spans
//
//   - dispatch.generate: one fallback chain run
//   - backend.attempt: one backend call inside the chain
//
// # Usage
//
//	tr, err := tracing.New(ctx, &cfg.Telemetry.Tracing, version)
//	defer tr.Shutdown(context.Background())
//
//	ctx, span := tr.Start(ctx, "dispatch.generate")
//	defer span.End()
package tracing
