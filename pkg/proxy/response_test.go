package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/dispatch"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy/types"
	"mercator-hq/pulse/pkg/security/auth"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"rejected", &ratelimit.RejectedError{Identifier: "u1", Limit: 5, RetryAfter: 12 * time.Second}, 429, types.CodeRateLimited},
		{"missing token", auth.ErrMissingToken, 401, types.CodeMissingToken},
		{"expired token", fmt.Errorf("%w: exp", auth.ErrExpiredToken), 401, types.CodeExpiredToken},
		{"invalid token", fmt.Errorf("%w: sig", auth.ErrInvalidToken), 401, types.CodeInvalidToken},
		{"empty message", pipeline.ErrEmptyMessage, 400, types.CodeMissingField},
		{"validation", &types.ValidationError{Field: "message", Message: "too long"}, 400, types.CodeInvalidValue},
		{"request error", &RequestError{Message: "bad", Code: types.CodeInvalidJSON, Param: "body"}, 400, types.CodeInvalidJSON},
		{"deadline", fmt.Errorf("waiting: %w", context.DeadlineExceeded), 504, types.CodeTimeout},
		{"unknown", errors.New("boom"), 500, types.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			if got := resp.Error.HTTPStatusCode(); got != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestHandleError_DoesNotLeakDetails(t *testing.T) {
	resp := HandleError(errors.New("dial tcp 10.0.0.3:6379: connection refused"))
	if resp.Error.Message != "An internal error occurred. Please try again later." {
		t.Errorf("internal details leaked: %q", resp.Error.Message)
	}
}

func TestWriteError_RetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &ratelimit.RejectedError{Identifier: "u1", Limit: 5, RetryAfter: 1500 * time.Millisecond}

	if werr := WriteError(rec, err); werr != nil {
		t.Fatal(werr)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("expected Retry-After 2, got %q", got)
	}

	var body types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Type != types.ErrorTypeRateLimitExceeded {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestWriteError_NoRetryAfterForOtherErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, auth.ErrInvalidToken)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "" {
		t.Error("unexpected Retry-After header")
	}
}

func TestFormatChatResponse(t *testing.T) {
	reset := time.Unix(1_700_000_060, 0)
	reply := &pipeline.Reply{
		Result: dispatch.Result{
			Text:        "Nice pace.",
			BackendUsed: "claude",
			Success:     true,
			LatencyMS:   420,
		},
		Admission: ratelimit.Result{Count: 3, Limit: 20, ResetTime: reset},
	}

	resp := FormatChatResponse(reply)
	if resp.Text != "Nice pace." || resp.BackendUsed != "claude" || !resp.Success {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.RateLimit.Remaining != 17 || !resp.RateLimit.ResetAt.Equal(reset) {
		t.Errorf("unexpected rate limit info %+v", resp.RateLimit)
	}

	rec := httptest.NewRecorder()
	SetRateLimitHeaders(rec, resp.RateLimit)
	if rec.Header().Get("X-RateLimit-Remaining") != "17" || rec.Header().Get("X-RateLimit-Reset") != "1700000060" {
		t.Errorf("unexpected headers %v", rec.Header())
	}
}
