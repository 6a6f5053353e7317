package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. It gives single-instance
// deployments and tests the same semantics as the Redis store. Members are
// not tracked individually since callers supply unique nonces.
//
// MemoryStore is thread-safe; every operation holds one mutex, which makes
// Admit atomic.
type MemoryStore struct {
	mu     sync.Mutex
	keys   map[string]*memoryKey
	closed bool
	done   chan struct{}
}

type memoryKey struct {
	// scores holds entry timestamps in unix milliseconds, ascending.
	scores    []int64
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. Expired keys are swept every
// cleanupInterval (default 1 minute).
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	m := &MemoryStore{
		keys: make(map[string]*memoryKey),
		done: make(chan struct{}),
	}
	go m.cleanupLoop(cleanupInterval)
	return m
}

// Admit implements Store.
func (m *MemoryStore) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string, ttl time.Duration) (WindowState, error) {
	if err := ctx.Err(); err != nil {
		return WindowState{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return WindowState{}, ErrClosed
	}

	k := m.liveKeyLocked(key, now)
	nowMS := now.UnixMilli()
	k.prune(nowMS - window.Milliseconds())

	state := WindowState{Count: len(k.scores)}
	if len(k.scores) < limit {
		k.insert(nowMS)
		k.expiresAt = now.Add(ttl)
		state.Count = len(k.scores)
		state.Admitted = true
	}
	if len(k.scores) > 0 {
		state.Oldest = time.UnixMilli(k.scores[0])
	}
	if len(k.scores) == 0 {
		delete(m.keys, key)
	}

	return state, nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	k, ok := m.keys[key]
	if !ok || (!k.expiresAt.IsZero() && !now.Before(k.expiresAt)) {
		return 0, nil
	}
	cutoff := now.UnixMilli() - window.Milliseconds()
	i := sort.Search(len(k.scores), func(i int) bool { return k.scores[i] >= cutoff })
	return len(k.scores) - i, nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.keys, key)
	return nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close stops the cleanup goroutine. Further operations return ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

// Size returns the number of live keys. Useful for tests and monitoring.
func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

// liveKeyLocked returns the entry set for key, discarding it first if it
// has expired. Caller must hold the lock.
func (m *MemoryStore) liveKeyLocked(key string, now time.Time) *memoryKey {
	k, ok := m.keys[key]
	if ok && !k.expiresAt.IsZero() && !now.Before(k.expiresAt) {
		ok = false
	}
	if !ok {
		k = &memoryKey{}
		m.keys[key] = k
	}
	return k
}

// sweep removes keys whose expiry has passed.
func (m *MemoryStore) sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, k := range m.keys {
		if !k.expiresAt.IsZero() && !now.Before(k.expiresAt) {
			delete(m.keys, key)
			removed++
		}
	}
	return removed
}

// cleanupLoop runs periodic cleanup of expired keys.
func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}

// prune drops entries scored strictly before cutoff.
func (k *memoryKey) prune(cutoff int64) {
	i := sort.Search(len(k.scores), func(i int) bool { return k.scores[i] >= cutoff })
	if i == 0 {
		return
	}
	k.scores = append(k.scores[:0], k.scores[i:]...)
}

// insert adds score keeping scores sorted.
func (k *memoryKey) insert(score int64) {
	i := sort.Search(len(k.scores), func(i int) bool { return k.scores[i] > score })
	k.scores = append(k.scores, 0)
	copy(k.scores[i+1:], k.scores[i:])
	k.scores[i] = score
}
