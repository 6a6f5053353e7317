package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common backend errors that can be checked with errors.Is().
var (
	// ErrBackendNotFound is returned when a named backend is not registered.
	ErrBackendNotFound = errors.New("backend not found")

	// ErrDuplicateBackend is returned when a name is registered twice.
	ErrDuplicateBackend = errors.New("duplicate backend name")
)

// ErrorKind classifies a backend failure for the fallback chain.
type ErrorKind int

const (
	// KindRecoverable failures (timeouts, quota, transient 5xx) degrade
	// the backend.
	KindRecoverable ErrorKind = iota

	// KindFatal failures (malformed request, rejected credentials) mark
	// the backend unhealthy. They usually mean misconfiguration.
	KindFatal
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	if k == KindFatal {
		return "fatal"
	}
	return "recoverable"
}

// Classify decides whether err is recoverable or fatal. Unknown errors,
// such as network failures, are treated as recoverable.
func Classify(err error) ErrorKind {
	var (
		authErr       *AuthError
		validationErr *ValidationError
		configErr     *ConfigError
		statusErr     *StatusError
	)

	switch {
	case errors.As(err, &authErr), errors.As(err, &validationErr), errors.As(err, &configErr):
		return KindFatal
	case errors.As(err, &statusErr):
		return classifyStatus(statusErr.StatusCode)
	default:
		return KindRecoverable
	}
}

// classifyStatus maps an HTTP status to a kind. 4xx other than timeout and
// rate limit mean the call itself is wrong and will not succeed on retry.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return KindRecoverable
	case code >= 400 && code < 500:
		return KindFatal
	default:
		return KindRecoverable
	}
}

// ErrorCode returns a short, stable label for err suitable for metrics
// and logs.
func ErrorCode(err error) string {
	var (
		authErr       *AuthError
		rateErr       *RateLimitError
		timeoutErr    *TimeoutError
		parseErr      *ParseError
		validationErr *ValidationError
		configErr     *ConfigError
		statusErr     *StatusError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rateErr):
		return "rate_limited"
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &validationErr):
		return "invalid_request"
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	default:
		return "network"
	}
}

// StatusError is returned when a backend answers with an unexpected HTTP
// status.
type StatusError struct {
	// Backend is the name of the backend that returned the error
	Backend string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the response body, truncated
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %q error (status %d): %s", e.Backend, e.StatusCode, e.Message)
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	Backend string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("backend %q authentication failed: %s", e.Backend, e.Message)
}

// RateLimitError represents a quota or rate limit rejection from the
// backend itself (HTTP 429).
type RateLimitError struct {
	Backend string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend %q rate limit exceeded (retry after %s): %s",
			e.Backend, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("backend %q rate limit exceeded: %s", e.Backend, e.Message)
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	Backend string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("backend %q request timeout after %s", e.Backend, e.Timeout)
	}
	return fmt.Sprintf("backend %q request timeout", e.Backend)
}

// Is lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Is(target error) bool {
	return target == context.DeadlineExceeded
}

// ParseError represents a malformed backend response.
type ParseError struct {
	Backend string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("backend %q response parse error: %v", e.Backend, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a request the backend cannot accept, caught
// before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// ConfigError represents an invalid backend configuration.
type ConfigError struct {
	Backend string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend %q configuration error for field %q: %s",
		e.Backend, e.Field, e.Message)
}
