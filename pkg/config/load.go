package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for every environment variable override.
const EnvPrefix = "PULSE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration bytes and applies defaults.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention PULSE_SECTION_FIELD (e.g., PULSE_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// Validation runs only once, after overrides, so that secrets supplied
// purely through the environment satisfy required fields.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format PULSE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Auth overrides
	envString("AUTH_TOKEN_SECRET", &cfg.Auth.TokenSecret)
	envString("AUTH_ISSUER", &cfg.Auth.Issuer)
	envString("AUTH_AUDIENCE", &cfg.Auth.Audience)
	envDuration("AUTH_LEEWAY", &cfg.Auth.Leeway)

	// Limits overrides
	envInt("LIMITS_DEFAULT_LIMIT", &cfg.Limits.DefaultLimit)
	envDuration("LIMITS_DEFAULT_WINDOW", &cfg.Limits.DefaultWindow)
	envString("LIMITS_KEY_PREFIX", &cfg.Limits.KeyPrefix)
	envString("LIMITS_STORE", &cfg.Limits.Store)
	envString("LIMITS_REDIS_ADDRESS", &cfg.Limits.Redis.Address)
	envString("LIMITS_REDIS_PASSWORD", &cfg.Limits.Redis.Password)
	envInt("LIMITS_REDIS_DB", &cfg.Limits.Redis.DB)

	// Backend overrides - one set per configured backend name
	for i := range cfg.Backends {
		applyBackendEnvOverrides(&cfg.Backends[i])
	}

	// Dispatch overrides
	envInt("DISPATCH_HISTORY_TURNS", &cfg.Dispatch.HistoryTurns)
	envDuration("DISPATCH_ATTEMPT_TIMEOUT", &cfg.Dispatch.AttemptTimeout)
	envInt("DISPATCH_UNHEALTHY_AFTER", &cfg.Dispatch.UnhealthyAfter)
	envInt("DISPATCH_MAX_IN_FLIGHT", &cfg.Dispatch.MaxInFlight)

	// Health overrides
	envString("HEALTH_PROBE_SCHEDULE", &cfg.Health.ProbeSchedule)
	envString("HEALTH_SNAPSHOT_PATH", &cfg.Health.SnapshotPath)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

// applyBackendEnvOverrides applies environment variable overrides for a specific backend.
// Backend environment variables follow the format PULSE_BACKENDS_<NAME>_<FIELD>
// where NAME is the uppercase backend name with dashes replaced by underscores.
func applyBackendEnvOverrides(b *BackendConfig) {
	name := strings.ToUpper(strings.ReplaceAll(b.Name, "-", "_"))
	prefix := "BACKENDS_" + name + "_"

	envString(prefix+"BASE_URL", &b.BaseURL)
	envString(prefix+"API_KEY", &b.APIKey)
	envString(prefix+"MODEL", &b.Model)
	envDuration(prefix+"TIMEOUT", &b.Timeout)
	envInt(prefix+"MAX_RETRIES", &b.MaxRetries)
	envInt(prefix+"PRIORITY", &b.Priority)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
