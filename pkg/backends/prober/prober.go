package prober

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"mercator-hq/pulse/pkg/backends"
)

// ScheduleOff disables probing.
const ScheduleOff = "off"

// Options configures a Prober.
type Options struct {
	// Schedule is a cron expression or descriptor such as "@every 30s".
	// Empty or "off" disables the scheduler; ProbeAll still works.
	Schedule string

	// Timeout bounds each probe. Default: 5s
	Timeout time.Duration

	Logger *slog.Logger
}

// Prober runs health probes against every registered backend on a cron
// schedule and feeds the results into the registry. A passing probe is the
// way an unhealthy backend returns to rotation.
type Prober struct {
	registry *backends.Registry
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a prober for registry.
func New(registry *backends.Registry, opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Prober{
		registry: registry,
		schedule: opts.Schedule,
		timeout:  opts.Timeout,
		cron:     cron.New(),
		logger:   opts.Logger.With("component", "backends.prober"),
	}
}

// Start schedules probing. It returns immediately; probing stops when ctx
// is cancelled or Stop is called.
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" || p.schedule == ScheduleOff {
		p.logger.Info("probe schedule not configured, skipping prober")
		return nil
	}

	if _, err := p.cron.AddFunc(p.schedule, func() { p.ProbeAll(ctx) }); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.schedule, err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("backend prober started", "schedule", p.schedule, "timeout", p.timeout)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// ProbeAll probes every backend that implements backends.Prober
// concurrently and records the results. It returns the number probed.
func (p *Prober) ProbeAll(ctx context.Context) int {
	var (
		g      errgroup.Group
		probed int
	)

	for _, d := range p.registry.Descriptors() {
		b, ok := p.registry.Get(d.Name)
		if !ok {
			continue
		}
		pr, ok := b.(backends.Prober)
		if !ok {
			continue
		}
		probed++

		name := d.Name
		g.Go(func() error {
			p.probe(ctx, name, pr)
			return nil
		})
	}

	g.Wait()
	return probed
}

func (p *Prober) probe(ctx context.Context, name string, pr backends.Prober) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := pr.HealthCheck(probeCtx)
	latency := time.Since(start)

	if ctx.Err() != nil {
		// Shutting down; the result says nothing about the backend.
		return
	}

	p.registry.RecordProbe(name, err)
	if err != nil {
		p.logger.Warn("health probe failed", "backend", name, "error", err, "latency", latency)
		return
	}
	p.logger.Debug("health probe passed", "backend", name, "latency", latency)
}

// Stop stops the scheduler and waits for a running probe round to finish.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("backend prober stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (p *Prober) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextRun returns the next scheduled probe time, or nil when not running.
func (p *Prober) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if !p.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
