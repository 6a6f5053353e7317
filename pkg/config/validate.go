package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateBackends(cfg.Backends)...)
	errs = append(errs, validateDispatch(&cfg.Dispatch)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateRealtime(&cfg.Realtime)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateAuth validates token verification configuration.
func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if cfg.TokenSecret == "" {
		errs = append(errs, FieldError{
			Field:   "auth.token_secret",
			Message: "token secret is required",
		})
	} else if len(cfg.TokenSecret) < 16 {
		errs = append(errs, FieldError{
			Field:   "auth.token_secret",
			Message: "token secret must be at least 16 bytes",
		})
	}
	if cfg.Leeway < 0 {
		errs = append(errs, FieldError{
			Field:   "auth.leeway",
			Message: "leeway must be non-negative",
		})
	}

	return errs
}

// validateLimits validates admission control configuration.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultLimit < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.default_limit",
			Message: "default limit must be non-negative",
		})
	}
	if cfg.DefaultWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "limits.default_window",
			Message: "default window must be positive",
		})
	}
	if cfg.TTLSlack < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.ttl_slack",
			Message: "ttl slack must be non-negative",
		})
	}

	validStores := map[string]bool{"memory": true, "redis": true}
	if !validStores[cfg.Store] {
		errs = append(errs, FieldError{
			Field:   "limits.store",
			Message: fmt.Sprintf("invalid store %q: must be 'memory' or 'redis'", cfg.Store),
		})
	}
	if cfg.Store == "redis" && cfg.Redis.Address == "" {
		errs = append(errs, FieldError{
			Field:   "limits.redis.address",
			Message: "redis address is required when store is 'redis'",
		})
	}
	if cfg.Redis.DB < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.redis.db",
			Message: "redis db must be non-negative",
		})
	}

	return errs
}

// validateBackends validates backend configurations.
func validateBackends(backends []BackendConfig) []FieldError {
	var errs []FieldError

	if len(backends) == 0 {
		errs = append(errs, FieldError{
			Field:   "backends",
			Message: "at least one backend must be configured",
		})
		return errs
	}

	validTypes := map[string]bool{"openai": true, "anthropic": true}
	seen := make(map[string]bool, len(backends))

	for i, b := range backends {
		prefix := fmt.Sprintf("backends[%d]", i)

		if b.Name == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: "name is required",
			})
		} else if seen[b.Name] {
			errs = append(errs, FieldError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate backend name %q", b.Name),
			})
		}
		seen[b.Name] = true

		if !validTypes[b.Type] {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("invalid type %q: must be 'openai' or 'anthropic'", b.Type),
			})
		}

		if b.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required",
			})
		} else if u, err := url.Parse(b.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("invalid URL %q", b.BaseURL),
			})
		}

		// API keys may be empty here and injected through the environment.

		if b.Model == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".model",
				Message: "model is required",
			})
		}

		if b.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}
		if b.MaxRetries < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries must be non-negative",
			})
		}
		if b.MaxRetries > 10 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries exceeds reasonable limit (10)",
			})
		}
		if b.MaxTokens < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_tokens",
				Message: "max tokens must be non-negative",
			})
		}
	}

	return errs
}

// validateDispatch validates fallback chain configuration.
func validateDispatch(cfg *DispatchConfig) []FieldError {
	var errs []FieldError

	if cfg.HistoryTurns < 0 {
		errs = append(errs, FieldError{
			Field:   "dispatch.history_turns",
			Message: "history turns must be non-negative",
		})
	}
	if cfg.AttemptTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "dispatch.attempt_timeout",
			Message: "attempt timeout must be positive",
		})
	}
	if cfg.UnhealthyAfter < 2 {
		errs = append(errs, FieldError{
			Field:   "dispatch.unhealthy_after",
			Message: "unhealthy_after must be at least 2",
		})
	}
	if cfg.MaxInFlight < 1 {
		errs = append(errs, FieldError{
			Field:   "dispatch.max_in_flight",
			Message: "max in flight must be at least 1",
		})
	}

	return errs
}

// validateHealth validates probe configuration.
func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	if cfg.ProbeSchedule != "" && cfg.ProbeSchedule != "off" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.ProbeSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "health.probe_schedule",
				Message: fmt.Sprintf("invalid cron schedule: %v", err),
			})
		}
	}
	if cfg.ProbeTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "health.probe_timeout",
			Message: "probe timeout must be positive",
		})
	}

	return errs
}

// validateRealtime validates WebSocket configuration.
func validateRealtime(cfg *RealtimeConfig) []FieldError {
	var errs []FieldError

	if cfg.SendBuffer < 1 {
		errs = append(errs, FieldError{
			Field:   "realtime.send_buffer",
			Message: "send buffer must be at least 1",
		})
	}
	if cfg.ChatQueue < 1 {
		errs = append(errs, FieldError{
			Field:   "realtime.chat_queue",
			Message: "chat queue must be at least 1",
		})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "realtime.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.PingInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "realtime.ping_interval",
			Message: "ping interval must be non-negative",
		})
	}
	if cfg.MaxMessageBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "realtime.max_message_bytes",
			Message: "max message bytes must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.MetricsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
