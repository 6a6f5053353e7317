package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/limits/store"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

// Options configures a Limiter.
type Options struct {
	// DefaultLimit and DefaultWindow are applied by Check.
	DefaultLimit  int
	DefaultWindow time.Duration

	// KeyPrefix is prepended to the identifier to form the store key.
	KeyPrefix string

	// TTLSlack is added to the window to form the key expiry, so a key
	// outlives its newest entry slightly and then disappears on its own.
	TTLSlack time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Collector

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps the limits configuration section to Options.
func OptionsFromConfig(cfg config.LimitsConfig) Options {
	return Options{
		DefaultLimit:  cfg.DefaultLimit,
		DefaultWindow: cfg.DefaultWindow,
		KeyPrefix:     cfg.KeyPrefix,
		TTLSlack:      cfg.TTLSlack,
	}
}

// Limiter is the admission controller. It is safe for concurrent use; all
// shared state lives in the store.
type Limiter struct {
	store     store.Store
	keyPrefix string
	ttlSlack  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time

	mu            sync.RWMutex
	defaultLimit  int
	defaultWindow time.Duration
}

// NewLimiter creates a limiter backed by s.
func NewLimiter(s store.Store, opts Options) *Limiter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = config.DefaultLimitKeyPrefix
	}
	if opts.TTLSlack <= 0 {
		opts.TTLSlack = config.DefaultLimitTTLSlack
	}
	if opts.DefaultWindow <= 0 {
		opts.DefaultWindow = config.DefaultRateWindow
	}

	return &Limiter{
		store:         s,
		keyPrefix:     opts.KeyPrefix,
		ttlSlack:      opts.TTLSlack,
		logger:        opts.Logger.With("component", "ratelimit"),
		metrics:       opts.Metrics,
		now:           opts.Now,
		defaultLimit:  opts.DefaultLimit,
		defaultWindow: opts.DefaultWindow,
	}
}

// CheckRateLimit admits or blocks one request for identifier under a
// budget of limit requests per window.
//
// The limit-th request in a window is admitted and the next one is
// blocked. A limit of zero or less blocks every request. If the store
// fails the request is admitted.
func (l *Limiter) CheckRateLimit(ctx context.Context, identifier string, limit int, window time.Duration) Result {
	now := l.now()

	if limit <= 0 {
		l.metrics.RecordAdmission("blocked")
		return Result{Limit: limit, ResetTime: now.Add(window), Blocked: true}
	}

	state, err := l.store.Admit(ctx, l.key(identifier), now, window, limit, nonce(now), window+l.ttlSlack)
	if err != nil {
		l.metrics.RecordAdmissionStoreError()
		l.metrics.RecordAdmission("allowed")
		l.logger.WarnContext(ctx, "counter store unavailable, admitting request",
			"identifier", identifier,
			"error", err,
		)
		return Result{Limit: limit, ResetTime: now.Add(window), FailedOpen: true}
	}

	res := Result{
		Count:     state.Count,
		Limit:     limit,
		Blocked:   !state.Admitted,
		ResetTime: now.Add(window),
	}
	if res.Blocked && !state.Oldest.IsZero() {
		res.ResetTime = state.Oldest.Add(window)
	}

	if res.Blocked {
		l.metrics.RecordAdmission("blocked")
		l.logger.InfoContext(ctx, "request rejected by rate limit",
			"identifier", identifier,
			"count", res.Count,
			"limit", limit,
			"reset_time", res.ResetTime,
		)
	} else {
		l.metrics.RecordAdmission("allowed")
	}

	return res
}

// Check applies the configured default limit and window.
func (l *Limiter) Check(ctx context.Context, identifier string) Result {
	limit, window := l.Defaults()
	return l.CheckRateLimit(ctx, identifier, limit, window)
}

// Admit is Check reported as an error: nil when admitted, *RejectedError
// when blocked.
func (l *Limiter) Admit(ctx context.Context, identifier string) (Result, error) {
	res := l.Check(ctx, identifier)
	if !res.Blocked {
		return res, nil
	}
	return res, &RejectedError{
		Identifier: identifier,
		Limit:      res.Limit,
		ResetTime:  res.ResetTime,
		RetryAfter: res.RetryAfter(l.now()),
	}
}

// Defaults returns the current default limit and window.
func (l *Limiter) Defaults() (int, time.Duration) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.defaultLimit, l.defaultWindow
}

// SetDefaults replaces the default limit and window. Used on config reload.
// Entries already recorded are kept and evaluated against the new budget.
func (l *Limiter) SetDefaults(limit int, window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if window <= 0 {
		window = l.defaultWindow
	}
	if limit != l.defaultLimit || window != l.defaultWindow {
		l.logger.Info("rate limit defaults updated",
			"limit", limit,
			"window", window,
		)
	}
	l.defaultLimit = limit
	l.defaultWindow = window
}

// Usage returns how many requests identifier has made in the trailing
// default window without recording one.
func (l *Limiter) Usage(ctx context.Context, identifier string) (int, error) {
	_, window := l.Defaults()
	return l.store.Count(ctx, l.key(identifier), l.now(), window)
}

// Reset clears the window for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Reset(ctx, l.key(identifier)); err != nil {
		return fmt.Errorf("failed to reset rate limit for %s: %w", identifier, err)
	}
	return nil
}

func (l *Limiter) key(identifier string) string {
	return l.keyPrefix + identifier
}

// nonce makes each entry unique even when two requests share a timestamp.
func nonce(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())
}
