package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/pulse/pkg/telemetry/logging"
)

// TokenSource defines where to extract bearer tokens from.
type TokenSource struct {
	Type   string // header, query
	Name   string // header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources reads the Authorization header first, then the named query
// parameter. Browsers cannot set headers on a WebSocket handshake, so the
// real-time endpoint relies on the query form.
func DefaultSources(queryParam string) []TokenSource {
	sources := []TokenSource{{Type: "header", Name: "Authorization", Scheme: "Bearer"}}
	if queryParam != "" {
		sources = append(sources, TokenSource{Type: "query", Name: queryParam})
	}
	return sources
}

// ExtractToken returns the first token found in sources, or ErrMissingToken.
func ExtractToken(r *http.Request, sources []TokenSource) (string, error) {
	for _, source := range sources {
		switch source.Type {
		case "header":
			value := strings.TrimSpace(r.Header.Get(source.Name))
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			scheme, token, ok := strings.Cut(value, " ")
			if ok && strings.EqualFold(scheme, source.Scheme) && strings.TrimSpace(token) != "" {
				return strings.TrimSpace(token), nil
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}
	return "", ErrMissingToken
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware is HTTP middleware for bearer token authentication.
type Middleware struct {
	verifier TokenVerifier
	sources  []TokenSource
	onError  ErrorWriter
	logger   *slog.Logger
}

// NewMiddleware creates the middleware. A nil onError writes a plain 401.
func NewMiddleware(verifier TokenVerifier, sources []TokenSource, onError ErrorWriter, logger *slog.Logger) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Missing or invalid bearer token", http.StatusUnauthorized)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		verifier: verifier,
		sources:  sources,
		onError:  onError,
		logger:   logger.With("component", "auth"),
	}
}

// Handle wraps an HTTP handler with bearer token authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractToken(r, m.sources)
		if err == nil {
			var id *Identity
			id, err = m.verifier.Verify(r.Context(), token)
			if err == nil {
				ctx := WithIdentity(r.Context(), id)
				ctx = logging.WithUser(ctx, id.UserID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}

		level := slog.LevelWarn
		if errors.Is(err, ErrMissingToken) {
			level = slog.LevelInfo
		}
		m.logger.Log(r.Context(), level, "authentication failed",
			"error", err,
			"remote_addr", r.RemoteAddr,
			"path", r.URL.Path,
		)
		m.onError(w, r, err)
	})
}
