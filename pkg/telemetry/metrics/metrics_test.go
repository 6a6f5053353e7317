package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("test", prometheus.NewRegistry())
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector("test", registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordAdmission("allowed")
	c.RecordAdmissionStoreError()
	c.RecordBackendAttempt("openai", "success", time.Second)
	c.UpdateBackendAvailability("openai", AvailabilityDegraded)
	c.RecordDispatchExhausted()
	c.UpdateSessions(1, 1)
	c.RecordDelivery("chat")
	c.RecordDeliveryFailure()
	c.RecordHTTPRequest("/v1/chat", 200, time.Millisecond)
}

func TestCollector_RecordAdmission(t *testing.T) {
	c := newTestCollector(t)

	c.RecordAdmission("allowed")
	c.RecordAdmission("allowed")
	c.RecordAdmission("blocked")
	c.RecordAdmissionStoreError()

	if got := testutil.ToFloat64(c.admissionMetrics.decisions.WithLabelValues("allowed")); got != 2 {
		t.Errorf("expected 2 allowed, got %v", got)
	}
	if got := testutil.ToFloat64(c.admissionMetrics.decisions.WithLabelValues("blocked")); got != 1 {
		t.Errorf("expected 1 blocked, got %v", got)
	}
	if got := testutil.ToFloat64(c.admissionMetrics.storeErrors); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
}

func TestCollector_BackendMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.RecordBackendAttempt("openai", "recoverable", 2*time.Second)
	c.RecordBackendAttempt("claude", "success", 500*time.Millisecond)
	c.UpdateBackendAvailability("openai", AvailabilityUnhealthy)
	c.RecordDispatchExhausted()

	if got := testutil.ToFloat64(c.backendMetrics.attempts.WithLabelValues("openai", "recoverable")); got != 1 {
		t.Errorf("expected 1 recoverable attempt, got %v", got)
	}
	if got := testutil.ToFloat64(c.backendMetrics.availability.WithLabelValues("openai")); got != AvailabilityUnhealthy {
		t.Errorf("expected availability %d, got %v", AvailabilityUnhealthy, got)
	}
	if got := testutil.ToFloat64(c.backendMetrics.exhausted); got != 1 {
		t.Errorf("expected 1 exhausted dispatch, got %v", got)
	}
	if n := testutil.CollectAndCount(c.backendMetrics.latency); n != 2 {
		t.Errorf("expected 2 latency series, got %d", n)
	}
}

func TestCollector_RealtimeMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.UpdateSessions(3, 2)
	c.RecordDelivery("chat")
	c.RecordDelivery("presence")
	c.RecordDeliveryFailure()

	if got := testutil.ToFloat64(c.realtimeMetrics.connections); got != 3 {
		t.Errorf("expected 3 connections, got %v", got)
	}
	if got := testutil.ToFloat64(c.realtimeMetrics.users); got != 2 {
		t.Errorf("expected 2 users, got %v", got)
	}
	if got := testutil.ToFloat64(c.realtimeMetrics.failures); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := newTestCollector(t)
	c.RecordAdmission("blocked")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_admission_decisions_total{decision="blocked"} 1`) {
		t.Errorf("expected admission counter in exposition, got:\n%s", rec.Body.String())
	}
}
