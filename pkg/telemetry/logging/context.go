package logging

import (
	"context"
	"log/slog"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UserKey is the context key for authenticated user identifiers.
	UserKey contextKey = "user_id"

	// ConnectionKey is the context key for real-time connection identifiers.
	ConnectionKey contextKey = "conn_id"

	// BackendKey is the context key for backend names.
	BackendKey contextKey = "backend"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUser adds a user identifier to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the user identifier from the context.
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

// WithConnection adds a connection identifier to the context.
func WithConnection(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ConnectionKey, connID)
}

// GetConnection retrieves the connection identifier from the context.
func GetConnection(ctx context.Context) string {
	if connID, ok := ctx.Value(ConnectionKey).(string); ok {
		return connID
	}
	return ""
}

// WithBackend adds a backend name to the context.
func WithBackend(ctx context.Context, backend string) context.Context {
	return context.WithValue(ctx, BackendKey, backend)
}

// GetBackend retrieves the backend name from the context.
func GetBackend(ctx context.Context) string {
	if backend, ok := ctx.Value(BackendKey).(string); ok {
		return backend
	}
	return ""
}

// contextAttrs extracts common fields from context for logging.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if v := GetUser(ctx); v != "" {
		attrs = append(attrs, slog.String(string(UserKey), v))
	}
	if v := GetConnection(ctx); v != "" {
		attrs = append(attrs, slog.String(string(ConnectionKey), v))
	}
	if v := GetBackend(ctx); v != "" {
		attrs = append(attrs, slog.String(string(BackendKey), v))
	}
	return attrs
}
