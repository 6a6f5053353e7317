package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json", Redact: true},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "empty config uses defaults",
			config: Config{},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Writer = &buf
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("failed to decode log line %q: %v", line, err)
	}
	return m
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn to be written, got %q", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUser(ctx, "u-42")
	ctx = WithConnection(ctx, "c-7")
	ctx = WithBackend(ctx, "openai")

	logger.InfoContext(ctx, "hello", "count", 3)

	m := decodeLine(t, &buf)
	for key, want := range map[string]string{
		"request_id": "req-1",
		"user_id":    "u-42",
		"conn_id":    "c-7",
		"backend":    "openai",
	} {
		if got, _ := m[key].(string); got != want {
			t.Errorf("expected %s=%q, got %v", key, want, m[key])
		}
	}
	if m["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", m["count"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("handshake",
		"token", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1In0.c2ln",
		"header", "Bearer abc.def.ghi",
		"note", "key sk-abcdefghijkl leaked",
		"max_tokens", 512,
	)

	out := buf.String()
	for _, leaked := range []string{"eyJzdWIiOiJ1In0", "abc.def.ghi", "sk-abcdefghijkl"} {
		if strings.Contains(out, leaked) {
			t.Errorf("expected %q to be redacted in %s", leaked, out)
		}
	}
	m := decodeLine(t, &buf)
	if m["max_tokens"] != float64(512) {
		t.Errorf("expected numeric attribute untouched, got %v", m["max_tokens"])
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("raw", "note", "sk-abcdefghijkl")
	if !strings.Contains(buf.String(), "sk-abcdefghijkl") {
		t.Errorf("expected raw value without redaction, got %s", buf.String())
	}
}

func TestLogger_WithAttrsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("api_key", "sk-verysecretvalue").Info("backend ready")
	if strings.Contains(buf.String(), "verysecretvalue") {
		t.Errorf("expected With attrs to be redacted, got %s", buf.String())
	}
}

func TestRedactSecret(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"short":              "***",
		"sk-1234567890abcde": "sk-1***",
	}
	for in, want := range tests {
		if got := RedactSecret(in); got != want {
			t.Errorf("RedactSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), 8) {
		t.Error("expected discard logger to reject error level")
	}
}
