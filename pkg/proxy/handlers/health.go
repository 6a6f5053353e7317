package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"mercator-hq/pulse/pkg/backends"
)

// HealthHandler handles liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ReadyHandler reports ready while at least one backend is not unhealthy.
type ReadyHandler struct {
	Backends BackendStatus
}

// NewReadyHandler creates a new readiness check handler.
func NewReadyHandler(status BackendStatus) *ReadyHandler {
	return &ReadyHandler{Backends: status}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	available := h.Backends.Available()
	total := len(h.Backends.Descriptors())

	status := "ready"
	statusCode := http.StatusOK
	if available == 0 {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status": status,
		"backends": map[string]int{
			"available": available,
			"total":     total,
		},
		"timestamp": time.Now().Unix(),
	})
}

// BackendHealthHandler serves the backend descriptor snapshot in
// preference order.
type BackendHealthHandler struct {
	Backends BackendStatus
}

// NewBackendHealthHandler creates a backend health handler.
func NewBackendHealthHandler(status BackendStatus) *BackendHealthHandler {
	return &BackendHealthHandler{Backends: status}
}

// ServeHTTP implements http.Handler.
func (h *BackendHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	descriptors := h.Backends.Descriptors()
	if descriptors == nil {
		descriptors = []backends.Descriptor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": descriptors,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
