package prober

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

type probeBackend struct {
	name  string
	err   atomic.Pointer[error]
	calls atomic.Int32
}

func (b *probeBackend) Name() string { return b.name }

func (b *probeBackend) Generate(context.Context, *backends.Request) (*backends.Response, error) {
	return &backends.Response{Text: "ok"}, nil
}

func (b *probeBackend) HealthCheck(context.Context) error {
	b.calls.Add(1)
	if p := b.err.Load(); p != nil {
		return *p
	}
	return nil
}

func (b *probeBackend) fail(err error) { b.err.Store(&err) }

func (b *probeBackend) pass() { b.err.Store(nil) }

type plainBackend struct{ name string }

func (b plainBackend) Name() string { return b.name }

func (b plainBackend) Generate(context.Context, *backends.Request) (*backends.Response, error) {
	return &backends.Response{}, nil
}

func newRegistry(t *testing.T, bs ...backends.Backend) *backends.Registry {
	t.Helper()
	r := backends.NewRegistry(backends.RegistryOptions{UnhealthyAfter: 2, Logger: logging.Discard()})
	for i, b := range bs {
		if err := r.Add(b, "stub", i+1); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestProbeAll_RestoresUnhealthyBackend(t *testing.T) {
	a := &probeBackend{name: "a"}
	r := newRegistry(t, a, plainBackend{name: "b"})
	r.RecordFailure("a", backends.KindFatal, errors.New("401"))

	p := New(r, Options{Logger: logging.Discard()})

	a.fail(errors.New("still 401"))
	if n := p.ProbeAll(context.Background()); n != 1 {
		t.Errorf("expected 1 backend probed, got %d", n)
	}
	if d, _ := r.Descriptor("a"); d.Availability != backends.Unhealthy {
		t.Errorf("expected unhealthy after failed probe, got %s", d.Availability)
	}

	a.pass()
	p.ProbeAll(context.Background())
	if d, _ := r.Descriptor("a"); d.Availability != backends.Healthy {
		t.Errorf("expected healthy after passing probe, got %s", d.Availability)
	}
}

func TestProbeAll_FailuresDegradeThenUnhealthy(t *testing.T) {
	a := &probeBackend{name: "a"}
	a.fail(errors.New("connection refused"))
	r := newRegistry(t, a)
	p := New(r, Options{Logger: logging.Discard()})

	p.ProbeAll(context.Background())
	if d, _ := r.Descriptor("a"); d.Availability != backends.Degraded {
		t.Fatalf("expected degraded, got %s", d.Availability)
	}
	p.ProbeAll(context.Background())
	if d, _ := r.Descriptor("a"); d.Availability != backends.Unhealthy {
		t.Fatalf("expected unhealthy, got %s", d.Availability)
	}
}

func TestStart_Scheduled(t *testing.T) {
	a := &probeBackend{name: "a"}
	r := newRegistry(t, a)
	p := New(r, Options{Schedule: "@every 1s", Logger: logging.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !p.IsRunning() || p.NextRun() == nil {
		t.Fatal("expected prober to be running with a next run")
	}

	deadline := time.Now().Add(3 * time.Second)
	for a.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if a.calls.Load() == 0 {
		t.Error("expected at least one scheduled probe")
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("expected prober to be stopped")
	}
}

func TestStart_Disabled(t *testing.T) {
	for _, schedule := range []string{"", ScheduleOff} {
		p := New(newRegistry(t), Options{Schedule: schedule, Logger: logging.Discard()})
		if err := p.Start(context.Background()); err != nil {
			t.Errorf("schedule %q: unexpected error %v", schedule, err)
		}
		if p.IsRunning() {
			t.Errorf("schedule %q: prober should not run", schedule)
		}
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	p := New(newRegistry(t), Options{Schedule: "every tuesday", Logger: logging.Discard()})
	if err := p.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
