package backendfactory

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.BackendConfig
		wantErr bool
	}{
		{
			name: "openai",
			cfg:  config.BackendConfig{Name: "openai", Type: "openai", APIKey: "sk", Model: "gpt-4o-mini", Timeout: time.Second},
		},
		{
			name: "anthropic",
			cfg:  config.BackendConfig{Name: "claude", Type: "anthropic", APIKey: "sk", Model: "claude-3-5-haiku-latest"},
		},
		{
			name: "inferred anthropic",
			cfg:  config.BackendConfig{Name: "claude", APIKey: "sk", Model: "claude-3-5-haiku-latest"},
		},
		{
			name:    "unsupported",
			cfg:     config.BackendConfig{Name: "x", Type: "gemini", Model: "m"},
			wantErr: true,
		},
		{
			name:    "anthropic without key",
			cfg:     config.BackendConfig{Name: "claude", Type: "anthropic", Model: "m"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.cfg, logging.Discard())
			if tt.wantErr {
				var cfgErr *backends.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.Name() != tt.cfg.Name {
				t.Errorf("expected name %s, got %s", tt.cfg.Name, b.Name())
			}
			if _, ok := b.(backends.Prober); !ok {
				t.Error("expected backend to support health probes")
			}
		})
	}
}

func TestNewRegistry(t *testing.T) {
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{UnhealthyAfter: 2},
		Backends: []config.BackendConfig{
			{Name: "openai", Type: "openai", APIKey: "sk", Model: "gpt-4o-mini", Priority: 2},
			{Name: "claude", Type: "anthropic", APIKey: "sk", Model: "claude-3-5-haiku-latest", Priority: 1},
		},
	}
	collector := metrics.NewCollector("pulse", nil)

	registry, err := NewRegistry(cfg, logging.Discard(), collector)
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	order := registry.TryOrder("")
	if len(order) != 2 || order[0].Name() != "claude" {
		t.Fatalf("expected claude first by priority, got %v", order)
	}

	registry.RecordFailure("openai", backends.KindFatal, errors.New("401"))

	expected := `
# HELP pulse_backend_availability Backend availability (0=healthy, 1=degraded, 2=unhealthy)
# TYPE pulse_backend_availability gauge
pulse_backend_availability{backend="claude"} 0
pulse_backend_availability{backend="openai"} 2
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "pulse_backend_availability"); err != nil {
		t.Error(err)
	}
}

func TestPrioritiesFromConfig(t *testing.T) {
	cfg := &config.Config{Backends: []config.BackendConfig{{Name: "a", Priority: 3}, {Name: "b", Priority: 1}}}
	got := PrioritiesFromConfig(cfg)
	if got["a"] != 3 || got["b"] != 1 {
		t.Errorf("unexpected priorities %v", got)
	}
}
