package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/config"
)

// Options configures a Store.
type Options struct {
	// TTL is how long an idle user's history is kept. Default: 30m
	TTL time.Duration

	// Capacity bounds the number of users held. Default: 10000
	Capacity uint64

	// MaxTurns bounds the turns kept per user. Default: 10
	MaxTurns int

	Logger *slog.Logger
}

// OptionsFromConfig maps configuration to Options. The per-user bound
// follows the dispatch history bound.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TTL:      cfg.Conversation.TTL,
		Capacity: cfg.Conversation.Capacity,
		MaxTurns: cfg.Dispatch.HistoryTurns,
	}
}

// Store holds per-user turn history in a TTL cache.
type Store struct {
	cache  *ttlcache.Cache[string, []backends.Turn]
	logger *slog.Logger

	// mu serializes read-modify-write appends.
	mu       sync.Mutex
	maxTurns int

	lifecycle sync.Mutex
	running   bool
}

// NewStore creates a store. Call Start to begin expiring idle users and
// Close to stop.
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = config.DefaultConversationTTL
	}
	if opts.Capacity == 0 {
		opts.Capacity = config.DefaultConversationCapacity
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = config.DefaultHistoryTurns
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, []backends.Turn](opts.TTL),
			ttlcache.WithCapacity[string, []backends.Turn](opts.Capacity),
		),
		logger:   opts.Logger.With("component", "conversation"),
		maxTurns: opts.MaxTurns,
	}

	s.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, []backends.Turn]) {
		if reason == ttlcache.EvictionReasonCapacityReached {
			s.logger.Debug("conversation evicted at capacity", "user_id", item.Key())
		}
	})

	return s
}

// Start runs the expiry loop in the background.
func (s *Store) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.cache.Start()
}

// History returns a copy of the user's recent turns, oldest first.
func (s *Store) History(userID string) []backends.Turn {
	item := s.cache.Get(userID)
	if item == nil {
		return nil
	}
	turns := item.Value()
	out := make([]backends.Turn, len(turns))
	copy(out, turns)
	return out
}

// Append adds turns to the user's history, dropping the oldest beyond the
// bound.
func (s *Store) Append(userID string, turns ...backends.Turn) {
	if userID == "" || len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []backends.Turn
	if item := s.cache.Get(userID); item != nil {
		existing = item.Value()
	}

	next := make([]backends.Turn, 0, len(existing)+len(turns))
	next = append(next, existing...)
	next = append(next, turns...)
	if len(next) > s.maxTurns {
		next = next[len(next)-s.maxTurns:]
	}

	s.cache.Set(userID, next, ttlcache.DefaultTTL)
}

// AppendExchange records a user message and the assistant's answer.
func (s *Store) AppendExchange(userID, message, answer string) {
	s.Append(userID,
		backends.Turn{Role: backends.RoleUser, Text: message},
		backends.Turn{Role: backends.RoleAssistant, Text: answer},
	)
}

// SetMaxTurns changes the per-user bound. Existing histories are trimmed
// on their next append.
func (s *Store) SetMaxTurns(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxTurns = n
	s.mu.Unlock()
}

// Clear drops the user's history.
func (s *Store) Clear(userID string) {
	s.cache.Delete(userID)
}

// Len returns the number of users with history.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close stops the expiry loop if it is running.
func (s *Store) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.cache.Stop()
	return nil
}
