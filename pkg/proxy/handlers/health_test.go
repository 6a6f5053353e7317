package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/pulse/pkg/backends"
)

type fakeStatus struct {
	descriptors []backends.Descriptor
}

func (f fakeStatus) Descriptors() []backends.Descriptor { return f.descriptors }

func (f fakeStatus) Available() int {
	n := 0
	for _, d := range f.descriptors {
		if d.Availability != backends.Unhealthy {
			n++
		}
	}
	return n
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name       string
		status     fakeStatus
		wantStatus int
	}{
		{
			name: "one healthy",
			status: fakeStatus{descriptors: []backends.Descriptor{
				{Name: "claude", Availability: backends.Unhealthy},
				{Name: "openai", Availability: backends.Degraded},
			}},
			wantStatus: http.StatusOK,
		},
		{
			name: "all unhealthy",
			status: fakeStatus{descriptors: []backends.Descriptor{
				{Name: "claude", Availability: backends.Unhealthy},
			}},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "no backends",
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewReadyHandler(tt.status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestBackendHealthHandler(t *testing.T) {
	status := fakeStatus{descriptors: []backends.Descriptor{
		{Name: "claude", Type: "anthropic", Priority: 1, Availability: backends.Degraded, ConsecutiveFailures: 1, LastError: "503"},
	}}

	rec := httptest.NewRecorder()
	NewBackendHealthHandler(status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/backends", nil))

	var body struct {
		Backends []map[string]any `json:"backends"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Backends) != 1 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	got := body.Backends[0]
	if got["name"] != "claude" || got["availability"] != "degraded" || got["consecutive_failures"] != float64(1) {
		t.Errorf("unexpected descriptor %v", got)
	}
}
