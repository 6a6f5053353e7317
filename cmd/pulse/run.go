package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/pulse/pkg/backendfactory"
	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/backends/healthstore"
	"mercator-hq/pulse/pkg/backends/prober"
	"mercator-hq/pulse/pkg/cli"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/conversation"
	"mercator-hq/pulse/pkg/delivery"
	"mercator-hq/pulse/pkg/dispatch"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/limits/store"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy/handlers"
	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/server"
	"mercator-hq/pulse/pkg/session"
	"mercator-hq/pulse/pkg/telemetry/health"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
	"mercator-hq/pulse/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Pulse server",
	Long: `Start the Pulse server with the specified configuration.

The server accepts chat messages on POST /v1/chat and over the WebSocket
endpoint /v1/ws, admits them against the per-user rate limit and answers
them through the configured backend chain.

Examples:
  # Start with default config
  pulse run

  # Start with custom config
  pulse run --config /etc/pulse/config.yaml

  # Override listen address
  pulse run --listen 0.0.0.0:8080

  # Validate config without starting server
  pulse run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = cli.SetupSignalHandler(ctx)

	if err := serve(ctx, cfg, logger); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// serve builds every component from cfg and blocks until ctx is cancelled
// or the server fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Namespace, nil)

	// Admission
	counters, err := store.New(cfg.Limits)
	if err != nil {
		return fmt.Errorf("failed to open counter store: %w", err)
	}
	defer counters.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
	if err := counters.Ping(pingCtx); err != nil {
		// Admission fails open while the store is unreachable.
		logger.Warn("counter store unreachable at startup", "store", cfg.Limits.Store, "error", err)
	}
	cancelPing()

	limiterOpts := ratelimit.OptionsFromConfig(cfg.Limits)
	limiterOpts.Logger = logger
	limiterOpts.Metrics = collector
	limiter := ratelimit.NewLimiter(counters, limiterOpts)

	// Backends
	registry, err := backendfactory.NewRegistry(cfg, logger, collector)
	if err != nil {
		return err
	}
	defer registry.Close()

	if cfg.Health.SnapshotPath != "" {
		snapshots, err := healthstore.Open(cfg.Health.SnapshotPath, logger)
		if err != nil {
			return err
		}
		defer snapshots.Close()
		restoreHealth(ctx, registry, snapshots, logger)
		registry.OnChange(snapshots.Observer())
	}

	probes := prober.New(registry, prober.Options{
		Schedule: cfg.Health.ProbeSchedule,
		Timeout:  cfg.Health.ProbeTimeout,
		Logger:   logger,
	})
	if err := probes.Start(ctx); err != nil {
		return err
	}
	defer probes.Stop()

	dispatchOpts := dispatch.OptionsFromConfig(cfg.Dispatch)
	dispatchOpts.Logger = logger
	dispatchOpts.Metrics = collector
	dispatchOpts.Tracer = tracer
	orchestrator := dispatch.NewOrchestrator(registry, dispatchOpts)

	conversationOpts := conversation.OptionsFromConfig(cfg)
	conversationOpts.Logger = logger
	conversations := conversation.NewStore(conversationOpts)
	conversations.Start()
	defer conversations.Close()

	// Sessions and delivery
	verifier, err := auth.NewVerifier(auth.VerifierOptionsFromConfig(cfg.Auth))
	if err != nil {
		return err
	}
	sessions := session.NewRegistry(session.Options{
		Verifier: verifier,
		Logger:   logger,
		Metrics:  collector,
	})
	deliverer := delivery.New(sessions, delivery.Options{Logger: logger, Metrics: collector})
	sessions.OnDisconnect(handlers.NotifyDisconnect(deliverer, time.Now))

	service := pipeline.New(limiter, orchestrator, conversations, pipeline.Options{
		MaxInFlight: cfg.Dispatch.MaxInFlight,
		Logger:      logger,
		Tracer:      tracer,
	})

	wsOpts := handlers.WebSocketOptionsFromConfig(cfg.Realtime, cfg.Auth)
	wsOpts.Logger = logger
	realtime := handlers.NewWebSocketHandler(service, sessions, deliverer, wsOpts)

	checks := health.New(cfg.Health.ProbeTimeout)
	checks.RegisterCheck("counter_store", counters.Ping)
	checks.RegisterCheck("backends", func(context.Context) error {
		if registry.Available() == 0 {
			return errors.New("no backend available")
		}
		return nil
	})

	srv := server.New(cfg, server.Deps{
		Chat:     service,
		Backends: registry,
		Verifier: verifier,
		Realtime: realtime,
		Metrics:  collector,
		Checks:   checks,
		Version:  health.VersionInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Logger:   logger,
	})

	watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval, logger)
	if err != nil {
		return err
	}

	logger.Info("pulse starting",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"backends", registry.Len(),
		"limit_store", cfg.Limits.Store,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// The watcher follows the server down.
		defer cancel()
		return srv.Start(gctx)
	})
	g.Go(func() error {
		if err := watcher.Watch(gctx, reloader(registry, limiter, orchestrator, logger)); err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("pulse stopped")
	return err
}

// restoreHealth seeds the registry with the last persisted availability so
// a restart does not route to a backend known to be down.
func restoreHealth(ctx context.Context, registry *backends.Registry, snapshots *healthstore.Store, logger *slog.Logger) {
	snapshot, err := snapshots.Load(ctx)
	if err != nil {
		logger.Warn("failed to load backend health snapshot", "error", err)
		return
	}
	registry.Restore(snapshot)
	logger.Info("backend health restored", "backends", len(snapshot))
}

// reloader applies the hot-reloadable parts of a new configuration. Backend
// membership, the listener and the counter store need a restart.
func reloader(registry *backends.Registry, limiter *ratelimit.Limiter, orchestrator *dispatch.Orchestrator, logger *slog.Logger) func(*config.Config) {
	return func(cfg *config.Config) {
		registry.SetPriorities(backendfactory.PrioritiesFromConfig(cfg))
		limiter.SetDefaults(cfg.Limits.DefaultLimit, cfg.Limits.DefaultWindow)
		orchestrator.SetPrompt(cfg.Dispatch.HistoryTurns, cfg.Dispatch.SystemPrompt)
		logger.Info("configuration applied",
			"default_limit", cfg.Limits.DefaultLimit,
			"default_window", cfg.Limits.DefaultWindow,
			"history_turns", cfg.Dispatch.HistoryTurns,
		)
	}
}
