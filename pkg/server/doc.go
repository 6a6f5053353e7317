// Package server ties the HTTP and real-time handlers, the middleware
// chain and the metrics endpoint into one http.Server and manages its
// lifecycle.
//
// # Routes
//
//	POST /v1/chat          bearer auth, request timeout
//	GET  /v1/ws            real-time connections
//	GET  /health           liveness
//	GET  /ready            readiness
//	GET  /health/backends  backend descriptors
//	GET  /metrics          Prometheus (path configurable)
//
// # Basic Usage
//
//	srv := server.New(cfg, server.Deps{
//	    Chat:     service,
//	    Backends: registry,
//	    Verifier: verifier,
//	    Realtime: ws,
//	    Metrics:  collector,
//	    Logger:   logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then shuts down within
// server.shutdown_timeout. Open real-time connections are closed with
// status 1001 (going away) as part of the shutdown.
package server
