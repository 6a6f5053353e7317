// Package ratelimit implements sliding-window admission control.
//
// # Overview
//
// A Limiter decides, per identifier, whether a request fits within a budget
// of limit requests over the trailing window. The window slides
// continuously; it is not split into aligned buckets, so a burst straddling
// a boundary cannot evade the limit.
//
// Each check is a single atomic store operation:
//
//  1. Prune entries older than now-window
//  2. Count the survivors
//  3. If count < limit, record a new entry at now
//
// # Usage
//
//	limiter := ratelimit.NewLimiter(store, ratelimit.Options{
//	    DefaultLimit:  20,
//	    DefaultWindow: time.Minute,
//	})
//	res := limiter.CheckRateLimit(ctx, userID, 5, time.Minute)
//	if res.Blocked {
//	    return &ratelimit.RejectedError{ResetTime: res.ResetTime}
//	}
//
// # Failure Policy
//
// When the counter store is unreachable the limiter fails open: the request
// is admitted, the error is logged and counted. A store outage must not take
// all traffic down with it.
package ratelimit
