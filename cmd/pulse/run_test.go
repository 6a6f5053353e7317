package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/backendfactory"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/dispatch"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/limits/store"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

func TestServe_StartsAndStops(t *testing.T) {
	path := writeConfig(t, testConfig)
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Health.SnapshotPath = filepath.Join(t.TempDir(), "health.db")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, logging.Discard()) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	path := writeConfig(t, testConfig)
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Server.ListenAddress = "256.0.0.1:bad"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := serve(ctx, cfg, logging.Discard()); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestReloader(t *testing.T) {
	cfg, err := config.LoadConfigWithEnvOverrides(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	logger := logging.Discard()
	collector := metrics.NewCollector("pulse", nil)

	registry, err := backendfactory.NewRegistry(cfg, logger, collector)
	if err != nil {
		t.Fatal(err)
	}
	defer registry.Close()

	counters := store.NewMemoryStore(time.Minute)
	defer counters.Close()
	limiter := ratelimit.NewLimiter(counters, ratelimit.OptionsFromConfig(cfg.Limits))
	orchestrator := dispatch.NewOrchestrator(registry, dispatch.OptionsFromConfig(cfg.Dispatch))

	if first := registry.TryOrder("")[0].Name(); first != "claude" {
		t.Fatalf("expected claude first before reload, got %s", first)
	}

	next := *cfg
	next.Backends = []config.BackendConfig{
		{Name: "openai", Type: "openai", Model: "gpt-4o-mini", Priority: 1},
		{Name: "claude", Type: "anthropic", Model: "claude-3-5-haiku-latest", Priority: 5},
	}
	next.Limits.DefaultLimit = 50
	next.Limits.DefaultWindow = 2 * time.Minute

	reloader(registry, limiter, orchestrator, logger)(&next)

	if first := registry.TryOrder("")[0].Name(); first != "openai" {
		t.Errorf("expected openai first after reload, got %s", first)
	}
	limit, window := limiter.Defaults()
	if limit != 50 || window != 2*time.Minute {
		t.Errorf("expected defaults 50/2m, got %d/%s", limit, window)
	}
}
