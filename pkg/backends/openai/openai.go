package openai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Backend is the OpenAI chat completions adapter.
type Backend struct {
	*backends.HTTPClient
	baseURL string
}

// New creates an OpenAI backend.
func New(cfg config.BackendConfig, logger *slog.Logger) (*Backend, error) {
	if cfg.Name == "" {
		return nil, &backends.ConfigError{Backend: "openai", Field: "name", Message: "backend name is required"}
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
	b.Logger().Info("OpenAI backend initialized", "base_url", b.baseURL, "model", cfg.Model)
	return b, nil
}

// Generate sends the conversation to the chat completions endpoint.
func (b *Backend) Generate(ctx context.Context, req *backends.Request) (*backends.Response, error) {
	if req == nil || len(req.Turns) == 0 {
		return nil, &backends.ValidationError{Field: "turns", Message: "at least one turn is required"}
	}

	cfg := b.Config()
	var raw chatResponse
	if err := b.DoJSONRequest(ctx, http.MethodPost, b.baseURL+"/chat/completions",
		transformRequest(req, cfg.Model, cfg.MaxTokens), &raw, b.headers()); err != nil {
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
	resp, err := b.DoRequest(ctx, http.MethodGet, b.baseURL+"/models", nil, b.headers())
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// headers omits Authorization when no key is configured, for local
// OpenAI-compatible servers.
func (b *Backend) headers() map[string]string {
	h := make(map[string]string, 1)
	if key := b.Config().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}
