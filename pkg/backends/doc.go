// Package backends defines the answer-generating backend abstraction, the
// registry that tracks backend health, and the error taxonomy used by the
// fallback chain.
//
// # Backends
//
// Every backend implements one capability:
//
//	Generate(ctx, *Request) (*Response, error)
//
// Concrete implementations live in subpackages (openai, anthropic) and
// share the HTTPClient transport defined here.
//
// # Health
//
// Each registered backend carries a Descriptor with one of three states:
//
//	healthy ──recoverable failure──> degraded ──N consecutive failures──> unhealthy
//	   ^                                │                                     │
//	   └──────────── success or passing probe ───────────────────────────────┘
//
// A fatal failure (rejected credentials, malformed call) moves a backend to
// unhealthy at once. No state is terminal.
//
// # Errors
//
// Classify maps an error to KindRecoverable or KindFatal:
//
//   - TimeoutError, RateLimitError, 5xx StatusError, network errors: recoverable
//   - AuthError, ValidationError, ConfigError, other 4xx StatusError: fatal
package backends
