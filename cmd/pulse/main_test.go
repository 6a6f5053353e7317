package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123"

const testConfig = `
server:
  listen_address: "127.0.0.1:0"
  shutdown_timeout: "2s"

auth:
  token_secret: "0123456789abcdef0123"
  issuer: "pulse-test"

limits:
  default_limit: 5
  default_window: "30s"

backends:
  - name: openai
    type: openai
    base_url: "http://127.0.0.1:1/v1"
    api_key: "sk-test"
    model: "gpt-4o-mini"
    priority: 2
  - name: claude
    type: anthropic
    base_url: "http://127.0.0.1:1"
    api_key: "sk-test"
    model: "claude-3-5-haiku-latest"
    priority: 1

health:
  probe_schedule: "off"

telemetry:
  logging:
    level: "error"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "validate", "backends", "token", "version", "completion"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCompletion(t *testing.T) {
	out, err := execute(t, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "pulse") {
		t.Error("bash completion should mention the command name")
	}

	if _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}
