package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/conversation"
	"mercator-hq/pulse/pkg/dispatch"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/telemetry/tracing"
)

// ErrEmptyMessage is returned for a request with no text.
var ErrEmptyMessage = errors.New("message text is required")

// Request is one chat message from an authenticated user.
type Request struct {
	UserID string
	Text   string

	// History, when non-nil, replaces the stored conversation history.
	History []backends.Turn

	// PreferredBackend is tried first when eligible.
	PreferredBackend string
}

// Reply is the outcome of an admitted request.
type Reply struct {
	Result    dispatch.Result
	Admission ratelimit.Result
}

// Options configures a Service.
type Options struct {
	// MaxInFlight bounds concurrent dispatches. Default: 64
	MaxInFlight int

	Logger *slog.Logger
	Tracer *tracing.Tracer
}

// Service runs admission and dispatch for both transports.
type Service struct {
	limiter       *ratelimit.Limiter
	orchestrator  *dispatch.Orchestrator
	conversations *conversation.Store
	inFlight      *semaphore.Weighted
	logger        *slog.Logger
	tracer        *tracing.Tracer
}

// New creates a service. conversations may be nil, in which case only
// explicit request history is used.
func New(limiter *ratelimit.Limiter, orchestrator *dispatch.Orchestrator, conversations *conversation.Store, opts Options) *Service {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = config.DefaultMaxInFlight
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		limiter:       limiter,
		orchestrator:  orchestrator,
		conversations: conversations,
		inFlight:      semaphore.NewWeighted(int64(opts.MaxInFlight)),
		logger:        opts.Logger.With("component", "pipeline"),
		tracer:        opts.Tracer,
	}
}

// Chat admits and answers req.
//
// Returns *ratelimit.RejectedError when the user is over budget,
// ErrEmptyMessage for blank text, and the context error if ctx ends while
// waiting for a dispatch slot.
func (s *Service) Chat(ctx context.Context, req Request) (*Reply, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.chat", trace.WithAttributes(
		attribute.String(tracing.AttrUser, req.UserID),
	))
	defer span.End()

	admission, err := s.limiter.Admit(ctx, req.UserID)
	if err != nil {
		s.logger.InfoContext(ctx, "chat request rejected",
			"user_id", req.UserID,
			"count", admission.Count,
			"limit", admission.Limit,
			"reset_time", admission.ResetTime,
		)
		span.SetAttributes(attribute.String(tracing.AttrOutcome, "rejected"))
		tracing.SetStatus(span, err)
		return nil, err
	}

	if err := s.inFlight.Acquire(ctx, 1); err != nil {
		tracing.SetStatus(span, err)
		return nil, fmt.Errorf("waiting for dispatch slot: %w", err)
	}
	defer s.inFlight.Release(1)

	history := req.History
	if history == nil && s.conversations != nil {
		history = s.conversations.History(req.UserID)
	}

	result := s.orchestrator.GenerateResponse(ctx, text, history, req.PreferredBackend)

	if result.Success && s.conversations != nil {
		s.conversations.AppendExchange(req.UserID, text, result.Text)
	}

	span.SetAttributes(
		attribute.String(tracing.AttrBackend, result.BackendUsed),
		attribute.Bool("pulse.success", result.Success),
	)
	tracing.SetStatus(span, nil)

	s.logger.InfoContext(ctx, "chat request completed",
		"user_id", req.UserID,
		"backend", result.BackendUsed,
		"success", result.Success,
		"latency_ms", result.LatencyMS,
		"remaining", admission.Remaining(),
	)

	return &Reply{Result: result, Admission: admission}, nil
}
