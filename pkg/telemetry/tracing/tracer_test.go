package tracing

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/pulse/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(context.Background(), &config.TracingConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tr.Enabled() {
		t.Error("expected disabled tracer")
	}

	ctx, span := tr.Start(context.Background(), "noop")
	defer span.End()
	if TraceID(ctx) != "" {
		t.Error("expected no trace id from noop tracer")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, "test"); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.Start(context.Background(), "nil")
	span.End()
	if ctx == nil {
		t.Fatal("expected context")
	}
	if tr.Enabled() {
		t.Error("nil tracer should not be enabled")
	}
}

func TestTracer_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewWithProvider(provider)
	defer tr.Shutdown(context.Background())

	ctx, parent := tr.Start(context.Background(), "dispatch.generate")
	if TraceID(ctx) == "" {
		t.Error("expected trace id inside span")
	}
	_, child := tr.Start(ctx, "backend.attempt")
	SetStatus(child, errors.New("timeout"))
	child.End()
	SetStatus(parent, nil)
	parent.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "backend.attempt" || spans[0].Status().Code != codes.Error {
		t.Errorf("unexpected child span %s status %v", spans[0].Name(), spans[0].Status())
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("expected child to be parented to dispatch span")
	}
}
