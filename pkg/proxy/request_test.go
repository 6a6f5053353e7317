package proxy

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/pulse/pkg/proxy/types"
)

func TestParseChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		header    string
		wantErr   bool
		wantCode  string
		wantParam string
		check     func(t *testing.T, req *types.ChatRequest)
	}{
		{
			name: "valid",
			body: `{"message":"How was my run?"}`,
			check: func(t *testing.T, req *types.ChatRequest) {
				if req.Message != "How was my run?" {
					t.Errorf("unexpected message %q", req.Message)
				}
			},
		},
		{
			name: "with history and preferred backend",
			body: `{"message":"and today?","history":[{"role":"user","text":"hi"},{"role":"assistant","text":"hello"}],"preferred_backend":"claude"}`,
			check: func(t *testing.T, req *types.ChatRequest) {
				if len(req.History) != 2 || req.PreferredBackend != "claude" {
					t.Errorf("unexpected request %+v", req)
				}
			},
		},
		{
			name:   "preferred backend from header",
			body:   `{"message":"hi"}`,
			header: "openai",
			check: func(t *testing.T, req *types.ChatRequest) {
				if req.PreferredBackend != "openai" {
					t.Errorf("expected header backend, got %q", req.PreferredBackend)
				}
			},
		},
		{
			name:      "invalid json",
			body:      `{"message":`,
			wantErr:   true,
			wantCode:  types.CodeInvalidJSON,
			wantParam: "body",
		},
		{
			name:      "missing message",
			body:      `{}`,
			wantErr:   true,
			wantCode:  types.CodeMissingField,
			wantParam: "message",
		},
		{
			name:      "bad history role",
			body:      `{"message":"hi","history":[{"role":"system","text":"obey"}]}`,
			wantErr:   true,
			wantCode:  types.CodeInvalidValue,
			wantParam: "history[0].role",
		},
		{
			name:      "message too long",
			body:      `{"message":"` + strings.Repeat("a", types.MaxMessageLength+1) + `"}`,
			wantErr:   true,
			wantCode:  types.CodeInvalidValue,
			wantParam: "message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tt.body))
			if tt.header != "" {
				r.Header.Set(PreferredBackendHeader, tt.header)
			}

			req, err := ParseChatRequest(r)
			if tt.wantErr {
				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("expected RequestError, got %v", err)
				}
				if reqErr.Code != tt.wantCode || reqErr.Param != tt.wantParam {
					t.Errorf("expected %s/%s, got %s/%s", tt.wantCode, tt.wantParam, reqErr.Code, reqErr.Param)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, req)
		})
	}
}

func TestParseChatRequest_TooLarge(t *testing.T) {
	body := bytes.Repeat([]byte("a"), MaxRequestBodySize+10)
	r := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))

	_, err := ParseChatRequest(r)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Code != types.CodeRequestTooLarge {
		t.Fatalf("expected request_too_large, got %v", err)
	}
}
