package backendfactory

import (
	"fmt"
	"log/slog"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/backends/anthropic"
	"mercator-hq/pulse/pkg/backends/openai"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

// NewBackend creates a backend from its configuration.
//
// Supported types:
//   - "openai": OpenAI chat completions (and compatible servers)
//   - "anthropic": Anthropic Messages API
//
// When Type is empty it is inferred from the name.
func NewBackend(cfg config.BackendConfig, logger *slog.Logger) (backends.Backend, error) {
	typ := cfg.Type
	if typ == "" {
		typ = inferType(cfg.Name)
		cfg.Type = typ
	}

	var (
		b   backends.Backend
		err error
	)
	switch typ {
	case "openai":
		b, err = openai.New(cfg, logger)
	case "anthropic":
		b, err = anthropic.New(cfg, logger)
	default:
		return nil, &backends.ConfigError{
			Backend: cfg.Name,
			Field:   "type",
			Message: fmt.Sprintf("unsupported backend type: %q (supported: openai, anthropic)", typ),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %q: %w", cfg.Name, err)
	}
	return b, nil
}

// NewRegistry builds a registry holding every configured backend and wires
// the availability gauge. Backends that fail to construct abort the build;
// already-created ones are closed.
func NewRegistry(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector) (*backends.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := backends.NewRegistry(backends.RegistryOptions{
		UnhealthyAfter: cfg.Dispatch.UnhealthyAfter,
		Logger:         logger,
	})

	for _, bc := range cfg.Backends {
		b, err := NewBackend(bc, logger)
		if err != nil {
			registry.Close()
			return nil, err
		}
		if err := registry.Add(b, bc.Type, bc.Priority); err != nil {
			registry.Close()
			return nil, err
		}
		collector.UpdateBackendAvailability(bc.Name, metrics.AvailabilityHealthy)
	}

	registry.OnChange(MetricsObserver(collector))

	logger.Info("backend registry initialized", "backends", registry.Len())
	return registry, nil
}

// MetricsObserver mirrors availability changes into the gauge.
func MetricsObserver(collector *metrics.Collector) backends.Observer {
	return func(d backends.Descriptor) {
		collector.UpdateBackendAvailability(d.Name, AvailabilityValue(d.Availability))
	}
}

// AvailabilityValue maps an availability to its gauge value.
func AvailabilityValue(a backends.Availability) int {
	switch a {
	case backends.Degraded:
		return metrics.AvailabilityDegraded
	case backends.Unhealthy:
		return metrics.AvailabilityUnhealthy
	default:
		return metrics.AvailabilityHealthy
	}
}

// PrioritiesFromConfig returns the priority of every configured backend,
// used to re-apply ordering on config reload.
func PrioritiesFromConfig(cfg *config.Config) map[string]int {
	out := make(map[string]int, len(cfg.Backends))
	for _, bc := range cfg.Backends {
		out[bc.Name] = bc.Priority
	}
	return out
}

// inferType infers the backend type from its name.
func inferType(name string) string {
	switch name {
	case "anthropic", "claude":
		return "anthropic"
	default:
		return "openai"
	}
}
