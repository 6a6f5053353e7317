package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/pulse/pkg/config"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 2048

// HTTPClient is the shared transport for HTTP backends. It provides
// connection pooling, timeouts, retries of network errors and 5xx
// responses, and maps HTTP failures onto the error types in errors.go.
//
// Concrete backends embed it and implement Generate on top of DoJSONRequest.
type HTTPClient struct {
	cfg    config.BackendConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClient creates a pooled client for the given backend configuration.
func NewHTTPClient(cfg config.BackendConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("component", "backends", "backend", cfg.Name),
	}
}

// Name returns the configured backend name.
func (c *HTTPClient) Name() string {
	return c.cfg.Name
}

// Config returns the backend configuration.
func (c *HTTPClient) Config() config.BackendConfig {
	return c.cfg
}

// Logger returns the backend-scoped logger.
func (c *HTTPClient) Logger() *slog.Logger {
	return c.logger
}

// DoRequest performs an HTTP request, retrying network errors and 5xx
// responses up to MaxRetries times with exponential backoff. Non-2xx
// responses are returned as errors; the caller owns the body of a
// successful response.
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 250 * time.Millisecond
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, c.contextError(ctx)
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, &ValidationError{Field: "url", Message: err.Error()}
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.contextError(ctx)
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				lastErr = &TimeoutError{Backend: c.cfg.Name, Timeout: c.cfg.Timeout}
			} else {
				lastErr = fmt.Errorf("backend %q request failed: %w", c.cfg.Name, err)
			}
			c.logger.Warn("request failed", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{Backend: c.cfg.Name, Message: string(errorBody)}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Backend:    c.cfg.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}
		}

		statusErr := &StatusError{
			Backend:    c.cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    string(errorBody),
		}
		if resp.StatusCode < 500 {
			return nil, statusErr
		}

		lastErr = statusErr
		c.logger.Warn("request returned error status",
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
	}

	return nil, lastErr
}

// DoJSONRequest marshals reqBody, performs the request and decodes the
// response into respBody.
func (c *HTTPClient) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return &ValidationError{Field: "request", Message: err.Error()}
		}
	}

	resp, err := c.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return c.contextError(ctx)
		}
		return &ParseError{
			Backend: c.cfg.Name,
			Cause:   fmt.Errorf("failed to read response: %w", err),
		}
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Backend:     c.cfg.Name,
				RawResponse: truncate(string(responseBytes), maxErrorBody),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// contextError maps a done context onto the backend error types. A
// deadline is a timeout; cancellation is passed through.
func (c *HTTPClient) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Backend: c.cfg.Name}
	}
	return ctx.Err()
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
