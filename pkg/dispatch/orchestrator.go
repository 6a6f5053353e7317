package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
	"mercator-hq/pulse/pkg/telemetry/tracing"
)

// BackendNone is the BackendUsed value of an exhausted dispatch.
const BackendNone = "none"

// ErrAllBackendsExhausted describes a dispatch where every backend failed.
// It is recorded in Result.ErrorKind, never returned.
var ErrAllBackendsExhausted = errors.New("all backends exhausted")

// ErrorKindExhausted is the Result.ErrorKind of an exhausted dispatch.
const ErrorKindExhausted = "all_backends_exhausted"

// Result is the normalized outcome of a dispatch. Nothing downstream ever
// sees a backend-specific shape.
type Result struct {
	Text        string        `json:"text"`
	BackendUsed string        `json:"backend_used"`
	Model       string        `json:"model,omitempty"`
	TokenCount  int           `json:"token_count"`
	Latency     time.Duration `json:"-"`
	LatencyMS   int64         `json:"latency_ms"`
	Success     bool          `json:"success"`
	ErrorKind   string        `json:"error_kind,omitempty"`

	// Attempts lists the backends tried, in order.
	Attempts []string `json:"attempts,omitempty"`
}

// Options configures an Orchestrator.
type Options struct {
	// HistoryTurns bounds the prior turns sent to a backend. Default: 10
	HistoryTurns int

	// AttemptTimeout bounds each backend call. Default: 20s
	AttemptTimeout time.Duration

	// FallbackMessage is the text of an exhausted result.
	FallbackMessage string

	// SystemPrompt is sent ahead of the conversation when set.
	SystemPrompt string

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// OptionsFromConfig maps the dispatch configuration section to Options.
func OptionsFromConfig(cfg config.DispatchConfig) Options {
	return Options{
		HistoryTurns:    cfg.HistoryTurns,
		AttemptTimeout:  cfg.AttemptTimeout,
		FallbackMessage: cfg.FallbackMessage,
		SystemPrompt:    cfg.SystemPrompt,
	}
}

// Orchestrator walks the backend registry in preference order and returns
// the first successful answer. Attempts are sequential; a failure is
// classified, recorded against the backend's health and the next backend
// is tried.
type Orchestrator struct {
	registry *backends.Registry
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer

	attemptTimeout  time.Duration
	fallbackMessage string

	mu           sync.RWMutex
	historyTurns int
	systemPrompt string
}

// NewOrchestrator creates an orchestrator over registry.
func NewOrchestrator(registry *backends.Registry, opts Options) *Orchestrator {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = config.DefaultHistoryTurns
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = config.DefaultAttemptTimeout
	}
	if opts.FallbackMessage == "" {
		opts.FallbackMessage = config.DefaultFallbackMessage
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Orchestrator{
		registry:        registry,
		logger:          opts.Logger.With("component", "dispatch"),
		metrics:         opts.Metrics,
		tracer:          opts.Tracer,
		attemptTimeout:  opts.AttemptTimeout,
		fallbackMessage: opts.FallbackMessage,
		historyTurns:    opts.HistoryTurns,
		systemPrompt:    opts.SystemPrompt,
	}
}

// SetPrompt updates the history bound and system prompt. Used on config
// reload.
func (o *Orchestrator) SetPrompt(historyTurns int, systemPrompt string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if historyTurns > 0 {
		o.historyTurns = historyTurns
	}
	o.systemPrompt = systemPrompt
}

// GenerateResponse produces an answer for message given prior history,
// trying preferred first when it is eligible.
//
// It never fails: when every backend fails, or none is eligible, the
// result has Success false, BackendUsed "none" and the fallback text. If
// ctx is cancelled the loop stops without blaming the backend in flight.
func (o *Orchestrator) GenerateResponse(ctx context.Context, message string, history []backends.Turn, preferred string) Result {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "dispatch.generate",
		trace.WithAttributes(attribute.String(tracing.AttrPreferred, preferred)))
	defer span.End()

	o.mu.RLock()
	req := BuildContext(o.systemPrompt, history, message, o.historyTurns)
	o.mu.RUnlock()

	order := o.registry.TryOrder(preferred)
	attempts := make([]string, 0, len(order))

	for i, b := range order {
		if ctx.Err() != nil {
			break
		}
		name := b.Name()
		attempts = append(attempts, name)

		resp, err := o.attempt(ctx, b, req, i+1)
		if err == nil {
			res := Result{
				Text:        resp.Text,
				BackendUsed: name,
				Model:       resp.Model,
				TokenCount:  resp.TokenCount,
				Success:     true,
				Attempts:    attempts,
			}
			res.setLatency(time.Since(start))
			span.SetAttributes(
				attribute.String(tracing.AttrBackend, name),
				attribute.String(tracing.AttrOutcome, "success"),
			)
			tracing.SetStatus(span, nil)
			return res
		}
	}

	o.metrics.RecordDispatchExhausted()
	o.logger.ErrorContext(ctx, "all backends exhausted",
		"preferred", preferred,
		"attempts", attempts,
		"cancelled", ctx.Err() != nil,
	)
	span.SetAttributes(attribute.String(tracing.AttrOutcome, ErrorKindExhausted))
	tracing.SetStatus(span, ErrAllBackendsExhausted)

	res := Result{
		Text:        o.fallbackMessage,
		BackendUsed: BackendNone,
		Success:     false,
		ErrorKind:   ErrorKindExhausted,
		Attempts:    attempts,
	}
	res.setLatency(time.Since(start))
	return res
}

// attempt runs one backend call under its own timeout and records the
// outcome against the backend's health.
func (o *Orchestrator) attempt(ctx context.Context, b backends.Backend, req *backends.Request, n int) (*backends.Response, error) {
	name := b.Name()
	ctx = logging.WithBackend(ctx, name)

	ctx, span := o.tracer.Start(ctx, "backend.attempt", trace.WithAttributes(
		attribute.String(tracing.AttrBackend, name),
		attribute.Int(tracing.AttrAttempt, n),
	))
	defer span.End()

	attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	start := time.Now()
	resp, err := b.Generate(attemptCtx, req)
	latency := time.Since(start)

	if err == nil && (resp == nil || resp.Text == "") {
		err = &backends.ParseError{Backend: name, Cause: errors.New("empty response")}
	}

	if err == nil {
		o.registry.RecordSuccess(name)
		o.metrics.RecordBackendAttempt(name, "success", latency)
		span.SetAttributes(attribute.String(tracing.AttrOutcome, "success"))
		tracing.SetStatus(span, nil)
		o.logger.DebugContext(ctx, "backend attempt succeeded", "attempt", n, "latency", latency)
		return resp, nil
	}

	tracing.SetStatus(span, err)

	if ctx.Err() != nil {
		// The caller gave up; the backend is not at fault.
		o.metrics.RecordBackendAttempt(name, "cancelled", latency)
		span.SetAttributes(attribute.String(tracing.AttrOutcome, "cancelled"))
		return nil, err
	}

	kind := backends.Classify(err)
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		kind = backends.KindRecoverable
		err = &backends.TimeoutError{Backend: name, Timeout: o.attemptTimeout}
	}

	o.registry.RecordFailure(name, kind, err)
	o.metrics.RecordBackendAttempt(name, kind.String(), latency)
	span.SetAttributes(
		attribute.String(tracing.AttrOutcome, kind.String()),
		attribute.String("pulse.error_code", backends.ErrorCode(err)),
	)

	attrs := []any{
		"attempt", n,
		"kind", kind.String(),
		"code", backends.ErrorCode(err),
		"latency", latency,
		"error", err,
	}
	if kind == backends.KindFatal {
		o.logger.ErrorContext(ctx, "backend failed fatally, check its configuration", attrs...)
	} else {
		o.logger.WarnContext(ctx, "backend failed, trying next", attrs...)
	}
	return nil, err
}

func (r *Result) setLatency(d time.Duration) {
	r.Latency = d
	r.LatencyMS = d.Milliseconds()
}
