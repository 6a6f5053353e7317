// Package dispatch produces an answer for a user message by walking the
// backend fallback chain.
//
// # Fallback Chain
//
// The Orchestrator asks the backend registry for a try order: the
// preferred backend first when it is registered and not unhealthy, then
// the remaining eligible backends by priority. Backends are tried one at a
// time. The first success wins and later backends are never invoked.
//
// Every failure is classified before moving on:
//
//   - Recoverable (timeouts, rate limits, 5xx, network errors, unparseable
//     responses): the backend degrades and becomes unhealthy after
//     repeated failures
//   - Fatal (authentication, invalid request, configuration): the backend
//     is marked unhealthy at once
//
// When no backend succeeds the result carries the configured fallback
// message, BackendUsed "none" and ErrorKind "all_backends_exhausted".
// GenerateResponse never returns an error.
//
// # Context
//
// BuildContext bounds the conversation sent to a backend to the most recent
// history turns plus the new user message. Each attempt runs under its own
// timeout; a cancelled caller stops the chain without penalizing the
// backend that was in flight.
package dispatch
