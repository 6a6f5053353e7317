package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/pulse/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		config      *CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantHeaders map[string]string
	}{
		{
			name:       "allowed origin echoed",
			config:     &CORSConfig{Enabled: true, AllowedOrigins: []string{"https://app.example.com"}},
			method:     http.MethodGet,
			origin:     "https://app.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "https://app.example.com",
		},
		{
			name:       "disallowed origin gets nothing",
			config:     &CORSConfig{Enabled: true, AllowedOrigins: []string{"https://app.example.com"}},
			method:     http.MethodGet,
			origin:     "https://evil.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "",
		},
		{
			name:       "disabled",
			config:     &CORSConfig{Enabled: false, AllowedOrigins: []string{"*"}},
			method:     http.MethodGet,
			origin:     "https://app.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "",
		},
		{
			name: "preflight",
			config: &CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST"},
				AllowedHeaders: []string{"Authorization"},
				MaxAge:         600,
			},
			method:     http.MethodOptions,
			origin:     "https://app.example.com",
			wantStatus: http.StatusNoContent,
			wantOrigin: "https://app.example.com",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods": "GET, POST",
				"Access-Control-Allow-Headers": "Authorization",
				"Access-Control-Max-Age":       "600",
			},
		},
		{
			name: "credentials and exposed headers",
			config: &CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{"https://app.example.com"},
				ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
				AllowCredentials: true,
			},
			method:     http.MethodPost,
			origin:     "https://app.example.com",
			wantStatus: http.StatusOK,
			wantOrigin: "https://app.example.com",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Expose-Headers":    "X-Request-ID, Retry-After",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/chat", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			CORSMiddleware(tt.config)(ok).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			for k, v := range tt.wantHeaders {
				if got := w.Header().Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestCORSFromConfig(t *testing.T) {
	c := CORSFromConfig(config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
		MaxAge:         120,
	})

	if !c.Enabled || c.MaxAge != 120 || len(c.AllowedOrigins) != 1 {
		t.Errorf("unexpected config %+v", c)
	}
	if len(c.AllowedMethods) == 0 || len(c.AllowedHeaders) == 0 {
		t.Error("expected default methods and headers")
	}

	found := false
	for _, h := range c.ExposedHeaders {
		if h == "Retry-After" {
			found = true
		}
	}
	if !found {
		t.Error("expected Retry-After to be exposed")
	}
}
