package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/dispatch"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy/types"
	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

func chatRequest(t *testing.T, body, userID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	if userID != "" {
		r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: userID}))
	}
	return r
}

func TestChatHandler(t *testing.T) {
	reset := time.Unix(1_700_000_100, 0)

	tests := []struct {
		name       string
		body       string
		userID     string
		reply      func(ctx context.Context, req pipeline.Request) (*pipeline.Reply, error)
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder, calls []pipeline.Request)
	}{
		{
			name:   "answer",
			body:   `{"message":"plan my week","history":[{"role":"user","text":"hi"}],"preferred_backend":"openai"}`,
			userID: "alice",
			reply: func(_ context.Context, req pipeline.Request) (*pipeline.Reply, error) {
				return &pipeline.Reply{
					Result:    dispatch.Result{Text: "Sure.", BackendUsed: "openai", Success: true, LatencyMS: 12},
					Admission: ratelimit.Result{Count: 1, Limit: 20, ResetTime: reset},
				}, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder, calls []pipeline.Request) {
				var resp types.ChatResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatal(err)
				}
				if resp.Text != "Sure." || resp.BackendUsed != "openai" || !resp.Success {
					t.Errorf("unexpected response %+v", resp)
				}
				if rec.Header().Get("X-RateLimit-Remaining") != "19" {
					t.Errorf("unexpected remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
				}
				if len(calls) != 1 || calls[0].UserID != "alice" || len(calls[0].History) != 1 || calls[0].PreferredBackend != "openai" {
					t.Errorf("unexpected pipeline request %+v", calls)
				}
			},
		},
		{
			name:   "exhausted is still 200",
			body:   `{"message":"hello"}`,
			userID: "alice",
			reply: func(_ context.Context, req pipeline.Request) (*pipeline.Reply, error) {
				return &pipeline.Reply{
					Result: dispatch.Result{Text: "sorry", BackendUsed: dispatch.BackendNone, ErrorKind: dispatch.ErrorKindExhausted},
				}, nil
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder, _ []pipeline.Request) {
				var resp types.ChatResponse
				json.Unmarshal(rec.Body.Bytes(), &resp)
				if resp.Success || resp.BackendUsed != "none" || resp.ErrorKind != dispatch.ErrorKindExhausted {
					t.Errorf("unexpected response %+v", resp)
				}
			},
		},
		{
			name:   "rejected",
			body:   `{"message":"hello"}`,
			userID: "alice",
			reply: func(_ context.Context, req pipeline.Request) (*pipeline.Reply, error) {
				return nil, &ratelimit.RejectedError{Identifier: "alice", Limit: 20, ResetTime: reset, RetryAfter: 9 * time.Second}
			},
			wantStatus: http.StatusTooManyRequests,
			check: func(t *testing.T, rec *httptest.ResponseRecorder, _ []pipeline.Request) {
				if rec.Header().Get("Retry-After") != "9" {
					t.Errorf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
				}
				if rec.Header().Get("X-RateLimit-Remaining") != "0" || rec.Header().Get("X-RateLimit-Reset") != "1700000100" {
					t.Errorf("unexpected rate limit headers %v", rec.Header())
				}
			},
		},
		{
			name:       "unauthenticated",
			body:       `{"message":"hello"}`,
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, _ *httptest.ResponseRecorder, calls []pipeline.Request) {
				if len(calls) != 0 {
					t.Error("pipeline should not be called")
				}
			},
		},
		{
			name:       "invalid body",
			body:       `{"message":`,
			userID:     "alice",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "internal error",
			body:   `{"message":"hello"}`,
			userID: "alice",
			reply: func(_ context.Context, req pipeline.Request) (*pipeline.Reply, error) {
				return nil, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{reply: tt.reply}
			h := NewChatHandler(chat, logging.Discard())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, chatRequest(t, tt.body, tt.userID))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.check != nil {
				tt.check(t, rec, chat.calls)
			}
		})
	}
}
