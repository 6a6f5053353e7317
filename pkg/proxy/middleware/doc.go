// Package middleware provides HTTP middleware for cross-cutting concerns:
// request ids, structured request logging with metrics, panic recovery,
// CORS and request deadlines.
//
// # Middleware Chain
//
// The server composes the chain as
//
//	handler = RequestID(Recovery(Logging(CORS(mux))))
//
// RequestID is outermost so every log line below it, including panic
// reports, carries the request id. Logging must sit above anything that
// replaces the request with r.WithContext before the mux, since it reads
// the matched route pattern from the request it passed down.
//
// TimeoutMiddleware is applied per route (POST /v1/chat) rather than to
// the whole chain; the real-time endpoint is long-lived.
//
// # Request ID
//
// A client-provided X-Request-ID is reused; otherwise a UUID v4 is
// generated:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The id is added to the request context, the logging context and the
// response headers.
//
// # Logging
//
// One line per request at INFO, WARN for 4xx and ERROR for 5xx:
//
//	{"level":"INFO","msg":"request completed","method":"POST","path":"/v1/chat",
//	 "route":"POST /v1/chat","status":200,"latency_ms":812,"request_id":"..."}
//
// The same middleware records pulse_http_requests_total and
// pulse_http_request_duration_seconds labelled by route pattern.
//
// # CORS
//
// CORSFromConfig builds the configuration from the server section.
// Preflight OPTIONS requests are answered with 204. Rate-limit headers
// and Retry-After are exposed to browsers.
package middleware
