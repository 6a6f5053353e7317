package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/pulse/pkg/session"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

type testMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (m testMessage) Kind() string { return m.Type }

type recordingSender struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (s *recordingSender) Send(_ context.Context, frame []byte) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type fixture struct {
	sessions  *session.Registry
	deliverer *Deliverer
	collector *metrics.Collector
	senders   map[string]*recordingSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	collector := metrics.NewCollector("pulse", nil)
	sessions := session.NewRegistry(session.Options{Logger: logging.Discard()})
	return &fixture{
		sessions:  sessions,
		deliverer: New(sessions, Options{Logger: logging.Discard(), Metrics: collector}),
		collector: collector,
		senders:   make(map[string]*recordingSender),
	}
}

func (f *fixture) connect(t *testing.T, userID, connID string, err error) *recordingSender {
	t.Helper()
	s := &recordingSender{err: err}
	if regErr := f.sessions.Register(userID, session.NewConnection(connID, "", s)); regErr != nil {
		t.Fatal(regErr)
	}
	f.senders[connID] = s
	return s
}

func TestDeliverToUser_FanOut(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect(t, "alice", "c1", nil)
	c2 := f.connect(t, "alice", "c2", nil)
	other := f.connect(t, "bob", "c3", nil)

	n := f.deliverer.DeliverToUser(context.Background(), "alice", testMessage{Type: "chat_broadcast", Text: "hi"}, "")

	if n != 2 || c1.count() != 1 || c2.count() != 1 {
		t.Fatalf("expected both of alice's connections to receive, got n=%d c1=%d c2=%d", n, c1.count(), c2.count())
	}
	if other.count() != 0 {
		t.Error("bob must not receive alice's message")
	}

	var got testMessage
	if err := json.Unmarshal(c2.frames[0], &got); err != nil || got.Text != "hi" {
		t.Errorf("unexpected frame %s (%v)", c2.frames[0], err)
	}
}

func TestDeliverToUser_Exclude(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect(t, "alice", "c1", nil)
	c2 := f.connect(t, "alice", "c2", nil)

	n := f.deliverer.DeliverToUser(context.Background(), "alice", testMessage{Type: "user_typing"}, "c1")

	if n != 1 || c1.count() != 0 || c2.count() != 1 {
		t.Errorf("expected only c2 to receive, got n=%d c1=%d c2=%d", n, c1.count(), c2.count())
	}
}

func TestDeliverToUser_FailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "alice", "c1", errors.New("broken pipe"))
	c2 := f.connect(t, "alice", "c2", nil)

	n := f.deliverer.DeliverToUser(context.Background(), "alice", testMessage{Type: "chat_broadcast"}, "")

	if n != 1 || c2.count() != 1 {
		t.Fatalf("expected delivery to continue past the failed connection, got n=%d", n)
	}

	expected := `
# HELP pulse_delivery_failures_total Outbound messages dropped or failed on write
# TYPE pulse_delivery_failures_total counter
pulse_delivery_failures_total 1
# HELP pulse_delivery_messages_total Total outbound messages by kind
# TYPE pulse_delivery_messages_total counter
pulse_delivery_messages_total{kind="chat_broadcast"} 1
`
	if err := testutil.GatherAndCompare(f.collector.Registry(), strings.NewReader(expected),
		"pulse_delivery_failures_total", "pulse_delivery_messages_total"); err != nil {
		t.Error(err)
	}
}

func TestDeliverToUser_Unknown(t *testing.T) {
	f := newFixture(t)
	if n := f.deliverer.DeliverToUser(context.Background(), "nobody", testMessage{Type: "x"}, ""); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestDeliverToConnection(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect(t, "alice", "c1", nil)
	c2 := f.connect(t, "alice", "c2", nil)

	if !f.deliverer.DeliverToConnection(context.Background(), "c2", testMessage{Type: "pong"}) {
		t.Fatal("expected delivery")
	}
	if c1.count() != 0 || c2.count() != 1 {
		t.Errorf("expected only c2, got c1=%d c2=%d", c1.count(), c2.count())
	}
	if f.deliverer.DeliverToConnection(context.Background(), "gone", testMessage{Type: "pong"}) {
		t.Error("expected false for unknown connection")
	}
}

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "alice", "c1", nil)
	f.connect(t, "bob", "c2", nil)
	f.connect(t, "carol", "c3", errors.New("closed"))

	if n := f.deliverer.Broadcast(context.Background(), testMessage{Type: "notice"}); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
}

type badMessage struct {
	Ch chan int `json:"ch"`
}

func (badMessage) Kind() string { return "bad" }

func TestDeliver_EncodeFailure(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect(t, "alice", "c1", nil)

	if n := f.deliverer.DeliverToUser(context.Background(), "alice", badMessage{Ch: make(chan int)}, ""); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if c1.count() != 0 {
		t.Error("nothing should be sent when encoding fails")
	}
}
