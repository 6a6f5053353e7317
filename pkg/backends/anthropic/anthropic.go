package anthropic

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"
)

// Backend is the Anthropic Messages API adapter.
type Backend struct {
	*backends.HTTPClient
	baseURL string
}

// New creates an Anthropic backend.
func New(cfg config.BackendConfig, logger *slog.Logger) (*Backend, error) {
	if cfg.Name == "" {
		return nil, &backends.ConfigError{Backend: "anthropic", Field: "name", Message: "backend name is required"}
	}
	if cfg.APIKey == "" {
		return nil, &backends.ConfigError{Backend: cfg.Name, Field: "api_key", Message: "API key is required for Anthropic"}
	}
	if cfg.Model == "" {
		return nil, &backends.ConfigError{Backend: cfg.Name, Field: "model", Message: "model is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	b := &Backend{
		HTTPClient: backends.NewHTTPClient(cfg, logger),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
	b.Logger().Info("Anthropic backend initialized", "base_url", b.baseURL, "model", cfg.Model)
	return b, nil
}

// Generate sends the conversation to the messages endpoint.
func (b *Backend) Generate(ctx context.Context, req *backends.Request) (*backends.Response, error) {
	if req == nil {
		return nil, &backends.ValidationError{Field: "request", Message: "request cannot be nil"}
	}

	cfg := b.Config()
	body, err := transformRequest(req, cfg.Model, cfg.MaxTokens)
	if err != nil {
		return nil, err
	}

	var raw messagesResponse
	if err := b.DoJSONRequest(ctx, http.MethodPost, b.baseURL+"/v1/messages", body, &raw, b.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&raw)
	if err != nil {
		return nil, &backends.ParseError{Backend: b.Name(), Cause: err}
	}

	b.Logger().Debug("completion succeeded", "model", resp.Model, "tokens", resp.TokenCount)
	return resp, nil
}

// HealthCheck lists models, which is cheap and authenticated.
func (b *Backend) HealthCheck(ctx context.Context) error {
	resp, err := b.DoRequest(ctx, http.MethodGet, b.baseURL+"/v1/models", nil, b.headers())
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (b *Backend) headers() map[string]string {
	return map[string]string{
		"x-api-key":         b.Config().APIKey,
		"anthropic-version": APIVersion,
	}
}
