// Package config provides configuration management for Pulse.
//
// This package handles loading, validating, and watching configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("pulse.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("pulse.yaml")
//
// There is no package-level configuration instance. The loaded *Config is
// passed explicitly to the components that need it.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PULSE_SECTION_FIELD.
// For example:
//
//   - PULSE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - PULSE_AUTH_TOKEN_SECRET overrides auth.token_secret
//   - PULSE_BACKENDS_OPENAI_API_KEY overrides the api_key of the backend named "openai"
//   - PULSE_LIMITS_REDIS_ADDRESS overrides limits.redis.address
//
// Environment variables always take precedence over file-based configuration.
//
// # Hot Reload
//
// Watcher observes the configuration file and delivers each valid reload
// to a callback. Only backend priorities and default rate limits are
// applied at runtime; other changes require a restart.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	auth:
//	  token_secret: "${PULSE_AUTH_TOKEN_SECRET}"
//
//	limits:
//	  default_limit: 20
//	  default_window: 60s
//	  store: redis
//	  redis:
//	    address: "localhost:6379"
//
//	backends:
//	  - name: openai
//	    type: openai
//	    base_url: "https://api.openai.com/v1"
//	    model: "gpt-4o-mini"
//	  - name: claude
//	    type: anthropic
//	    base_url: "https://api.anthropic.com"
//	    model: "claude-3-5-haiku-latest"
package config
