package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/telemetry/logging"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	user, ok := v[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: user}, nil
}

func nopSender() Sender {
	return SenderFunc(func(context.Context, []byte) error { return nil })
}

func newTestRegistry(t *testing.T, collector *metrics.Collector) *Registry {
	t.Helper()
	return NewRegistry(Options{
		Verifier: staticVerifier{"tok-alice": "alice", "tok-bob": "bob"},
		Logger:   logging.Discard(),
		Metrics:  collector,
		Now:      func() time.Time { return time.Unix(1_700_000_000, 0) },
	})
}

func TestRegistry_Authenticate(t *testing.T) {
	r := newTestRegistry(t, nil)

	user, err := r.Authenticate(context.Background(), "c1", "tok-alice")
	if err != nil || user != "alice" {
		t.Fatalf("expected alice, got %q (%v)", user, err)
	}

	if _, err := r.Authenticate(context.Background(), "c2", "forged"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := r.Authenticate(context.Background(), "c3", ""); !errors.Is(err, auth.ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
	if r.Stats().Connections != 0 {
		t.Error("authentication must not register connections")
	}
}

func TestRegistry_FanOutAndDisconnect(t *testing.T) {
	r := newTestRegistry(t, nil)

	c1 := NewConnection("c1", "", nopSender())
	c2 := NewConnection("c2", "", nopSender())
	if err := r.Register("alice", c1); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("alice", c2); err != nil {
		t.Fatal(err)
	}

	if got := r.ConnectionsFor("alice"); !reflect.DeepEqual(got, []string{"c1", "c2"}) {
		t.Fatalf("expected both connections, got %v", got)
	}

	if !r.Unregister("c1") {
		t.Fatal("expected c1 to be removed")
	}
	if got := r.ConnectionsFor("alice"); !reflect.DeepEqual(got, []string{"c2"}) {
		t.Errorf("expected only c2 to remain, got %v", got)
	}
	if _, ok := r.Connection("c1"); ok {
		t.Error("c1 still resolvable after unregister")
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := newTestRegistry(t, nil)
	c1 := NewConnection("c1", "", nopSender())

	for i := 0; i < 3; i++ {
		if err := r.Register("alice", c1); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	if s := r.Stats(); s.Connections != 1 || s.Users != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestRegistry_ConnectionOwnedByOneUser(t *testing.T) {
	r := newTestRegistry(t, nil)

	if err := r.Register("alice", NewConnection("c1", "", nopSender())); err != nil {
		t.Fatal(err)
	}
	err := r.Register("bob", NewConnection("c1", "", nopSender()))
	if !errors.Is(err, ErrConnectionOwned) {
		t.Fatalf("expected ErrConnectionOwned, got %v", err)
	}
	if got := r.ConnectionsFor("bob"); got != nil {
		t.Errorf("bob must not own c1, got %v", got)
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := newTestRegistry(t, nil)
	if err := r.Register("alice", nil); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("expected ErrInvalidConnection, got %v", err)
	}
	if err := r.Register("", NewConnection("c1", "", nopSender())); !errors.Is(err, ErrInvalidConnection) {
		t.Errorf("expected ErrInvalidConnection, got %v", err)
	}
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := newTestRegistry(t, nil)

	var mu sync.Mutex
	var events []string
	r.OnDisconnect(func(conn Info, remaining []string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, conn.UserID+":"+conn.ID+":"+strings.Join(remaining, ","))
	})

	r.Register("alice", NewConnection("c1", "", nopSender()))
	r.Register("alice", NewConnection("c2", "", nopSender()))

	if !r.Unregister("c1") {
		t.Fatal("first unregister should remove")
	}
	if r.Unregister("c1") {
		t.Error("second unregister should be a no-op")
	}
	if r.Unregister("unknown") {
		t.Error("unknown id should be a no-op")
	}

	if !reflect.DeepEqual(events, []string{"alice:c1:c2"}) {
		t.Errorf("expected exactly one presence event, got %v", events)
	}
}

func TestRegistry_EmptyUserRemoved(t *testing.T) {
	r := newTestRegistry(t, nil)

	var remainingSeen []string
	called := 0
	r.OnDisconnect(func(_ Info, remaining []string) {
		called++
		remainingSeen = remaining
	})

	r.Register("alice", NewConnection("c1", "", nopSender()))
	r.Unregister("c1")

	if got := r.ConnectionsFor("alice"); got != nil {
		t.Errorf("expected no entry for alice, got %v", got)
	}
	if s := r.Stats(); s.Users != 0 || s.Connections != 0 {
		t.Errorf("expected empty index, got %+v", s)
	}
	if called != 1 || len(remainingSeen) != 0 {
		t.Errorf("expected one hook call with no remaining connections, got %d %v", called, remainingSeen)
	}
}

func TestRegistry_Metrics(t *testing.T) {
	collector := metrics.NewCollector("pulse", nil)
	r := newTestRegistry(t, collector)

	r.Register("alice", NewConnection("c1", "", nopSender()))
	r.Register("alice", NewConnection("c2", "", nopSender()))
	r.Register("bob", NewConnection("c3", "", nopSender()))
	r.Unregister("c3")

	expected := `
# HELP pulse_sessions_active_connections Number of open authenticated connections
# TYPE pulse_sessions_active_connections gauge
pulse_sessions_active_connections 2
# HELP pulse_sessions_active_users Number of users with at least one open connection
# TYPE pulse_sessions_active_users gauge
pulse_sessions_active_users 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected),
		"pulse_sessions_active_connections", "pulse_sessions_active_users"); err != nil {
		t.Error(err)
	}
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := newTestRegistry(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			conn := NewConnection(id, "", nopSender())
			if err := r.Register("alice", conn); err != nil {
				t.Errorf("register: %v", err)
				return
			}
			r.Unregister(id)
		}(i)
	}
	wg.Wait()

	if s := r.Stats(); s.Connections != 0 || s.Users != 0 {
		t.Errorf("expected empty index, got %+v", s)
	}
}

func TestConnection_Info(t *testing.T) {
	r := newTestRegistry(t, nil)
	c := NewConnection("c1", "10.0.0.1:5000", nopSender())
	r.Register("alice", c)

	later := time.Unix(1_700_000_060, 0)
	c.Touch(later)

	info := c.Info()
	if info.UserID != "alice" || info.RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("unexpected info %+v", info)
	}
	if !info.AuthenticatedAt.Equal(time.Unix(1_700_000_000, 0)) {
		t.Errorf("unexpected authenticated time %v", info.AuthenticatedAt)
	}
	if !info.LastActiveAt.Equal(later) {
		t.Errorf("unexpected last active %v", info.LastActiveAt)
	}
	if len(r.All()) != 1 || len(r.Connections("alice")) != 1 {
		t.Error("expected connection to be listed")
	}
}
