package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	opts.Logger = logging.Discard()
	s := NewStore(opts)
	s.Start()
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendExchange(t *testing.T) {
	s := newTestStore(t, Options{})

	s.AppendExchange("u1", "I ran 5k", "Great pace!")

	got := s.History("u1")
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Role != backends.RoleUser || got[0].Text != "I ran 5k" {
		t.Errorf("unexpected user turn %+v", got[0])
	}
	if got[1].Role != backends.RoleAssistant || got[1].Text != "Great pace!" {
		t.Errorf("unexpected assistant turn %+v", got[1])
	}
	if s.History("u2") != nil {
		t.Error("expected no history for another user")
	}
}

func TestStore_Bounded(t *testing.T) {
	s := newTestStore(t, Options{MaxTurns: 4})

	for i := 0; i < 5; i++ {
		s.AppendExchange("u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got := s.History("u1")
	if len(got) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(got))
	}
	if got[0].Text != "q3" || got[3].Text != "a4" {
		t.Errorf("expected most recent turns, got %+v", got)
	}
}

func TestStore_HistoryIsCopy(t *testing.T) {
	s := newTestStore(t, Options{})
	s.AppendExchange("u1", "q", "a")

	got := s.History("u1")
	got[0].Text = "changed"

	if s.History("u1")[0].Text != "q" {
		t.Error("mutating returned history changed the store")
	}
}

func TestStore_Expiry(t *testing.T) {
	s := newTestStore(t, Options{TTL: 30 * time.Millisecond})
	s.AppendExchange("u1", "q", "a")

	time.Sleep(80 * time.Millisecond)

	if got := s.History("u1"); got != nil {
		t.Errorf("expected history to expire, got %+v", got)
	}
}

func TestStore_Capacity(t *testing.T) {
	s := newTestStore(t, Options{Capacity: 2})

	s.AppendExchange("u1", "q", "a")
	s.AppendExchange("u2", "q", "a")
	s.AppendExchange("u3", "q", "a")

	if s.Len() != 2 {
		t.Errorf("expected 2 users held, got %d", s.Len())
	}
	if s.History("u3") == nil {
		t.Error("expected newest user to be kept")
	}
}

func TestStore_ClearAndSetMaxTurns(t *testing.T) {
	s := newTestStore(t, Options{MaxTurns: 10})
	s.AppendExchange("u1", "q1", "a1")
	s.AppendExchange("u1", "q2", "a2")

	s.SetMaxTurns(2)
	s.AppendExchange("u1", "q3", "a3")
	if got := s.History("u1"); len(got) != 2 || got[0].Text != "q3" {
		t.Errorf("expected trimmed history, got %+v", got)
	}

	s.Clear("u1")
	if s.History("u1") != nil {
		t.Error("expected cleared history")
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := newTestStore(t, Options{MaxTurns: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AppendExchange("u1", fmt.Sprintf("q%d", i), "a")
		}(i)
	}
	wg.Wait()

	if got := len(s.History("u1")); got != 100 {
		t.Errorf("expected 100 turns, got %d", got)
	}
}

func TestStore_CloseWithoutStart(t *testing.T) {
	s := NewStore(Options{Logger: logging.Discard()})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
