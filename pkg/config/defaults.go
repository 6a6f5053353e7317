package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultCORSMaxAge      = 3600

	// Auth defaults
	DefaultAuthLeeway     = 30 * time.Second
	DefaultAuthQueryParam = "token"

	// Limits defaults
	DefaultRateLimit      = 20
	DefaultRateWindow     = 60 * time.Second
	DefaultLimitKeyPrefix = "pulse:ratelimit:"
	DefaultLimitTTLSlack  = 10 * time.Second
	DefaultLimitStore     = "memory"
	DefaultRedisTimeout   = 3 * time.Second

	// Backend defaults
	DefaultBackendTimeout   = 30 * time.Second
	DefaultBackendMaxTokens = 1024

	// Dispatch defaults
	DefaultHistoryTurns    = 10
	DefaultAttemptTimeout  = 20 * time.Second
	DefaultUnhealthyAfter  = 3
	DefaultMaxInFlight     = 64
	DefaultFallbackMessage = "Sorry, I can't answer right now. Please try again in a moment."

	// Health defaults
	DefaultProbeSchedule = "@every 30s"
	DefaultProbeTimeout  = 5 * time.Second

	// Realtime defaults
	DefaultSendBuffer      = 32
	DefaultChatQueue       = 16
	DefaultWSWriteTimeout  = 10 * time.Second
	DefaultPingInterval    = 30 * time.Second
	DefaultMaxMessageBytes = int64(65536)

	// Conversation defaults
	DefaultConversationTTL      = 30 * time.Minute
	DefaultConversationCapacity = uint64(10000)

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "pulse"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "pulse"
)

// ApplyDefaults fills every zero-valued field with its default.
// Fields explicitly set in the configuration are left untouched.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Auth defaults
	if cfg.Auth.Leeway == 0 {
		cfg.Auth.Leeway = DefaultAuthLeeway
	}
	if cfg.Auth.QueryParam == "" {
		cfg.Auth.QueryParam = DefaultAuthQueryParam
	}

	// Limits defaults
	if cfg.Limits.DefaultLimit == 0 {
		cfg.Limits.DefaultLimit = DefaultRateLimit
	}
	if cfg.Limits.DefaultWindow == 0 {
		cfg.Limits.DefaultWindow = DefaultRateWindow
	}
	if cfg.Limits.KeyPrefix == "" {
		cfg.Limits.KeyPrefix = DefaultLimitKeyPrefix
	}
	if cfg.Limits.TTLSlack == 0 {
		cfg.Limits.TTLSlack = DefaultLimitTTLSlack
	}
	if cfg.Limits.Store == "" {
		cfg.Limits.Store = DefaultLimitStore
	}
	if cfg.Limits.Redis.DialTimeout == 0 {
		cfg.Limits.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Limits.Redis.ReadTimeout == 0 {
		cfg.Limits.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Limits.Redis.WriteTimeout == 0 {
		cfg.Limits.Redis.WriteTimeout = DefaultRedisTimeout
	}

	// Backend defaults - applied to each backend, priority follows list order
	for i := range cfg.Backends {
		b := &cfg.Backends[i]
		if b.Type == "" {
			b.Type = b.Name
		}
		if b.Timeout == 0 {
			b.Timeout = DefaultBackendTimeout
		}
		if b.MaxTokens == 0 {
			b.MaxTokens = DefaultBackendMaxTokens
		}
		if b.Priority == 0 {
			b.Priority = i + 1
		}
	}

	// Dispatch defaults
	if cfg.Dispatch.HistoryTurns == 0 {
		cfg.Dispatch.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.Dispatch.AttemptTimeout == 0 {
		cfg.Dispatch.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Dispatch.UnhealthyAfter == 0 {
		cfg.Dispatch.UnhealthyAfter = DefaultUnhealthyAfter
	}
	if cfg.Dispatch.FallbackMessage == "" {
		cfg.Dispatch.FallbackMessage = DefaultFallbackMessage
	}
	if cfg.Dispatch.MaxInFlight == 0 {
		cfg.Dispatch.MaxInFlight = DefaultMaxInFlight
	}

	// Health defaults
	if cfg.Health.ProbeSchedule == "" {
		cfg.Health.ProbeSchedule = DefaultProbeSchedule
	}
	if cfg.Health.ProbeTimeout == 0 {
		cfg.Health.ProbeTimeout = DefaultProbeTimeout
	}

	// Realtime defaults
	if cfg.Realtime.SendBuffer == 0 {
		cfg.Realtime.SendBuffer = DefaultSendBuffer
	}
	if cfg.Realtime.ChatQueue == 0 {
		cfg.Realtime.ChatQueue = DefaultChatQueue
	}
	if cfg.Realtime.WriteTimeout == 0 {
		cfg.Realtime.WriteTimeout = DefaultWSWriteTimeout
	}
	if cfg.Realtime.PingInterval == 0 {
		cfg.Realtime.PingInterval = DefaultPingInterval
	}
	if cfg.Realtime.MaxMessageBytes == 0 {
		cfg.Realtime.MaxMessageBytes = DefaultMaxMessageBytes
	}

	// Conversation defaults
	if cfg.Conversation.TTL == 0 {
		cfg.Conversation.TTL = DefaultConversationTTL
	}
	if cfg.Conversation.Capacity == 0 {
		cfg.Conversation.Capacity = DefaultConversationCapacity
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
}

// applyCORSDefaults applies defaults to the CORS section.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
