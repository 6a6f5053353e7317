package config

import "time"

// Config is the root configuration structure for Pulse.
// It contains all configuration sections for the HTTP and real-time server,
// token verification, admission control, answer backends, dispatch,
// session handling, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Auth contains bearer-token verification settings.
	Auth AuthConfig `yaml:"auth"`

	// Limits contains admission control (sliding window) configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Backends is the ordered list of answer-generating backends.
	// List order is the default priority order.
	Backends []BackendConfig `yaml:"backends"`

	// Dispatch contains fallback chain and context-building settings.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Health contains backend health probing and snapshot settings.
	Health HealthConfig `yaml:"health"`

	// Realtime contains WebSocket connection settings.
	Realtime RealtimeConfig `yaml:"realtime"`

	// Conversation contains per-user turn history settings.
	Conversation ConversationConfig `yaml:"conversation"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading an entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writes of HTTP responses. It does not apply to
	// hijacked WebSocket connections.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for the HTTP chat endpoint.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	MaxAge           int      `yaml:"max_age"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// AuthConfig contains bearer-token verification settings.
// Tokens are issued elsewhere; this service only verifies them.
type AuthConfig struct {
	// TokenSecret is the HMAC secret used to verify token signatures.
	// Should be provided through PULSE_AUTH_TOKEN_SECRET.
	TokenSecret string `yaml:"token_secret"`

	// Issuer, when set, must match the token "iss" claim.
	Issuer string `yaml:"issuer"`

	// Audience, when set, must be present in the token "aud" claim.
	Audience string `yaml:"audience"`

	// Leeway tolerates clock skew when checking exp/nbf.
	// Default: 30s
	Leeway time.Duration `yaml:"leeway"`

	// QueryParam is the query parameter carrying the token on the
	// real-time handshake when no Authorization header is present.
	// Default: "token"
	QueryParam string `yaml:"query_param"`
}

// LimitsConfig contains admission control configuration.
type LimitsConfig struct {
	// DefaultLimit is the number of requests admitted per identifier per window.
	// Default: 20
	DefaultLimit int `yaml:"default_limit"`

	// DefaultWindow is the sliding window size.
	// Default: 60s
	DefaultWindow time.Duration `yaml:"default_window"`

	// KeyPrefix prefixes every counter key in the shared store.
	// Default: "pulse:ratelimit:"
	KeyPrefix string `yaml:"key_prefix"`

	// TTLSlack is added to the window to form the key TTL so keys expire
	// on their own slightly after the window closes.
	// Default: 10s
	TTLSlack time.Duration `yaml:"ttl_slack"`

	// Store selects the shared counter store: "redis" or "memory".
	// Default: "memory"
	Store string `yaml:"store"`

	// Redis configures the Redis store.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis connection for the shared counter store.
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BackendConfig contains configuration for a single answer backend.
type BackendConfig struct {
	// Name identifies the backend (e.g., "openai", "claude").
	Name string `yaml:"name"`

	// Type selects the implementation: "openai" or "anthropic".
	Type string `yaml:"type"`

	// BaseURL is the API endpoint base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey is the backend credential. Opaque to the core.
	// Overridable through PULSE_BACKENDS_<NAME>_API_KEY.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent to the backend.
	Model string `yaml:"model"`

	// MaxTokens bounds the generated answer length.
	// Default: 1024
	MaxTokens int `yaml:"max_tokens"`

	// Timeout is the HTTP client timeout for this backend.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of in-backend retries for network errors.
	// Default: 0 (the fallback chain handles failures)
	MaxRetries int `yaml:"max_retries"`

	// Priority orders the fallback chain (lower first). Zero means list order.
	Priority int `yaml:"priority"`
}

// DispatchConfig contains fallback chain settings.
type DispatchConfig struct {
	// HistoryTurns bounds the number of prior turns sent to a backend.
	// Default: 10
	HistoryTurns int `yaml:"history_turns"`

	// AttemptTimeout bounds each backend attempt.
	// Default: 20s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// UnhealthyAfter is the number of consecutive failures that moves a
	// degraded backend to unhealthy.
	// Default: 3
	UnhealthyAfter int `yaml:"unhealthy_after"`

	// FallbackMessage is returned to the user when every backend fails.
	FallbackMessage string `yaml:"fallback_message"`

	// SystemPrompt, when set, is sent as the first turn of every context.
	SystemPrompt string `yaml:"system_prompt"`

	// MaxInFlight bounds concurrent dispatches across all connections.
	// Default: 64
	MaxInFlight int `yaml:"max_in_flight"`
}

// HealthConfig contains backend health probe settings.
type HealthConfig struct {
	// ProbeSchedule is a cron expression for health probes.
	// Default: "@every 30s". "off" disables probing.
	ProbeSchedule string `yaml:"probe_schedule"`

	// ProbeTimeout bounds each probe.
	// Default: 5s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// SnapshotPath is the SQLite file holding last-known backend health.
	// Empty disables persistence.
	SnapshotPath string `yaml:"snapshot_path"`
}

// RealtimeConfig contains WebSocket connection settings.
type RealtimeConfig struct {
	// SendBuffer is the per-connection outbound frame buffer.
	// Default: 32
	SendBuffer int `yaml:"send_buffer"`

	// ChatQueue is the per-connection queue of pending chat messages.
	// Default: 16
	ChatQueue int `yaml:"chat_queue"`

	// WriteTimeout bounds each frame write.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PingInterval is the keepalive ping period.
	// Default: 30s
	PingInterval time.Duration `yaml:"ping_interval"`

	// MaxMessageBytes limits inbound frame size.
	// Default: 65536
	MaxMessageBytes int64 `yaml:"max_message_bytes"`

	// AllowedOrigins lists origin patterns accepted for cross-origin
	// handshakes. Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ConversationConfig contains per-user history settings.
type ConversationConfig struct {
	// TTL is how long an idle user's history is kept.
	// Default: 30m
	TTL time.Duration `yaml:"ttl"`

	// Capacity bounds the number of users with cached history.
	// Default: 10000
	Capacity uint64 `yaml:"capacity"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`

	// Redact masks tokens and API keys in log attributes.
	// Default: true
	Redact *bool `yaml:"redact"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls the /metrics endpoint.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "pulse"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// MetricsEnabled reports whether metrics are enabled, honoring the default.
func (c MetricsConfig) MetricsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RedactEnabled reports whether log redaction is enabled, honoring the default.
func (c LoggingConfig) RedactEnabled() bool {
	return c.Redact == nil || *c.Redact
}
