// Package proxy holds the HTTP edge of the chat relay: request parsing,
// error mapping and response writing shared by the handlers.
//
// # Architecture
//
//   - handlers: chat, health and real-time (WebSocket) handlers
//   - middleware: request id, logging, recovery, CORS, timeouts
//   - types: HTTP bodies and real-time frames
//
// # Endpoints
//
//	POST /v1/chat          one chat message, bearer auth
//	GET  /v1/ws            real-time connection (token in header or ?token=)
//	GET  /health           liveness
//	GET  /ready            at least one backend not unhealthy
//	GET  /health/backends  backend health snapshot
//	GET  /metrics          Prometheus metrics
//
// # Errors
//
// Every failure is written as
//
//	{"error":{"message":"...","type":"rate_limit_exceeded","code":"rate_limited"}}
//
// with the status implied by the type. Admission rejections carry a
// Retry-After header in whole seconds. An exhausted fallback chain is not
// an error: it is a 200 with "success": false and the apology text.
package proxy
