// Package store provides the shared counter store used for sliding-window
// admission.
//
// Two implementations are provided:
//
//   - MemoryStore keeps windows in process memory (single instance)
//   - RedisStore keeps windows in Redis sorted sets, scored by admission
//     time in milliseconds, and performs each admission in one Lua script
//
// Both implement the same contract: entries older than now-window are
// pruned, the remainder is counted, and a new entry is recorded only when
// the count is below the limit. Keys expire after a TTL slightly longer
// than the window so idle identities do not accumulate.
package store
