package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/backends/healthstore"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

func TestBackends_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.db")

	s, err := healthstore.Open(path, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, backends.Descriptor{Name: "openai", Availability: backends.Unhealthy, ConsecutiveFailures: 3, LastCheckedAt: checked, LastError: "status 503"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, backends.Descriptor{Name: "claude", Availability: backends.Healthy}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	t.Cleanup(func() { backendsFlags.snapshot = "" })

	out, err := execute(t, "backends", "--snapshot", path, "--format", "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"NAME,AVAILABILITY,FAILURES,LAST CHECKED,LAST ERROR",
		"claude,healthy,0,-,",
		"openai,unhealthy,3,2026-03-01T12:00:00Z,status 503",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBackends_NoSnapshotConfigured(t *testing.T) {
	path := writeConfig(t, testConfig)
	backendsFlags.snapshot = ""

	if _, err := execute(t, "backends", "--config", path, "--format", "text"); err == nil {
		t.Error("expected error when no snapshot path is configured")
	}
}
