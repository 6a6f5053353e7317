// Package health provides liveness, readiness and version endpoints.
//
// Readiness aggregates named checks, for example the shared counter store
// and backend availability:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("counter_store", store.Ping)
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
package health
