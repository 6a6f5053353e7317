package backends

import "context"

// Backend is the single capability every answer-generating backend exposes.
// The dispatch orchestrator never branches on backend identity; it only
// selects which Backend to call.
//
// Implementations must respect context cancellation and return promptly
// when ctx is done. Errors should be one of the types in errors.go so that
// Classify can tell recoverable failures from fatal ones.
type Backend interface {
	// Name returns the configured backend name (e.g., "openai", "claude").
	Name() string

	// Generate produces an answer for the given conversation.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Prober is implemented by backends that support a lightweight health
// probe. A passing probe returns an unhealthy backend to rotation.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Closer is implemented by backends holding resources (HTTP connections).
type Closer interface {
	Close() error
}
