package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("counter store closed")

// Store is the shared counter store behind sliding-window admission.
// Each key holds an ordered set of admitted-request entries scored by
// their timestamp. Implementations must be safe for concurrent use.
type Store interface {
	// Admit atomically prunes entries older than now-window, counts the
	// rest and, if the count is below limit, records member at now and
	// refreshes the key expiry to ttl. The prune, count and record steps
	// form one indivisible operation so concurrent callers cannot both
	// take the last slot.
	Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int, member string, ttl time.Duration) (WindowState, error)

	// Count returns the number of entries at or after now-window without
	// recording anything.
	Count(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)

	// Reset removes every entry for key.
	Reset(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// WindowState is the outcome of an Admit call.
type WindowState struct {
	// Count is the number of live entries after the call, including the
	// new one when Admitted is true.
	Count int

	// Oldest is the timestamp of the oldest live entry. Zero when the
	// window is empty.
	Oldest time.Time

	// Admitted reports whether member was recorded.
	Admitted bool
}
