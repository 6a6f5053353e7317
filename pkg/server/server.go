package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/proxy"
	"mercator-hq/pulse/pkg/proxy/handlers"
	"mercator-hq/pulse/pkg/proxy/middleware"
	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/telemetry/health"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

// Deps are the components the server routes to.
type Deps struct {
	// Chat answers POST /v1/chat.
	Chat handlers.ChatService

	// Backends backs /ready and /health/backends.
	Backends handlers.BackendStatus

	// Verifier authenticates POST /v1/chat.
	Verifier auth.TokenVerifier

	// Realtime serves GET /v1/ws. Optional.
	Realtime *handlers.WebSocketHandler

	// Metrics is exposed on the metrics path when enabled. Optional.
	Metrics *metrics.Collector

	// Checks serves per-component readiness on /health/checks. Optional.
	Checks *health.Checker

	// Version is reported on /version.
	Version health.VersionInfo

	Logger *slog.Logger
}

// Server is the HTTP and real-time front of the relay.
type Server struct {
	config     *config.Config
	deps       Deps
	logger     *slog.Logger
	httpServer *http.Server

	mu        sync.RWMutex
	listener  net.Listener
	isRunning bool

	shutdownOnce sync.Once
}

// New creates a server. Nothing listens until Start.
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "server"),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	if s.deps.Realtime != nil {
		s.httpServer.RegisterOnShutdown(s.deps.Realtime.Close)
	}
	s.listener = ln
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server, bounded by the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// Addr returns the bound address while running, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	authn := auth.NewMiddleware(
		s.deps.Verifier,
		auth.DefaultSources(""),
		func(w http.ResponseWriter, _ *http.Request, err error) { _ = proxy.WriteError(w, err) },
		s.deps.Logger,
	)

	var chat http.Handler = handlers.NewChatHandler(s.deps.Chat, s.deps.Logger)
	chat = middleware.TimeoutMiddleware(s.config.Server.WriteTimeout)(chat)
	mux.Handle("POST /v1/chat", authn.Handle(chat))

	if s.deps.Realtime != nil {
		mux.Handle("GET /v1/ws", s.deps.Realtime)
	}

	mux.Handle("GET /health", handlers.NewHealthHandler())
	mux.Handle("GET /ready", handlers.NewReadyHandler(s.deps.Backends))
	mux.Handle("GET /health/backends", handlers.NewBackendHealthHandler(s.deps.Backends))
	if s.deps.Checks != nil {
		mux.Handle("GET /health/checks", s.deps.Checks.ReadinessHandler())
	}
	v := s.deps.Version
	mux.Handle("GET /version", health.VersionHandler(v.Version, v.Commit, v.BuildTime))

	if s.deps.Metrics != nil && s.config.Telemetry.Metrics.MetricsEnabled() {
		path := s.config.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(middleware.CORSFromConfig(s.config.Server.CORS))(handler)
	handler = middleware.LoggingMiddleware(s.deps.Logger, s.deps.Metrics)(handler)
	handler = middleware.RecoveryMiddleware(s.deps.Logger)(handler)
	handler = middleware.RequestIDMiddleware(handler)

	return handler
}
