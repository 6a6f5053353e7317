package ratelimit

import (
	"fmt"
	"time"
)

// Result is the outcome of a rate limit check.
type Result struct {
	// Count is the number of admitted requests in the current window,
	// including this one when it was admitted.
	Count int

	// Limit is the limit the check was evaluated against.
	Limit int

	// ResetTime is when capacity frees up. For a blocked request this is
	// the oldest surviving entry plus the window.
	ResetTime time.Time

	// Blocked reports whether the request was rejected.
	Blocked bool

	// FailedOpen is set when the store could not be reached and the
	// request was admitted without being counted.
	FailedOpen bool
}

// Remaining returns how many more requests fit in the window.
func (r Result) Remaining() int {
	if n := r.Limit - r.Count; n > 0 {
		return n
	}
	return 0
}

// RetryAfter returns how long a blocked caller should wait, measured from now.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if !r.Blocked {
		return 0
	}
	if d := r.ResetTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RejectedError reports that a request exceeded its admission budget.
type RejectedError struct {
	Identifier string
	Limit      int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Error implements error.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: limit %d, retry after %s",
		e.Identifier, e.Limit, e.RetryAfter.Round(time.Second))
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, as used by the
// Retry-After header. Never less than 1.
func (e *RejectedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
