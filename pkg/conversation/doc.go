// Package conversation keeps a short, bounded turn history per user.
//
// Real-time clients send only the new message, so the service remembers
// recent turns itself. After every successful dispatch the user turn and
// the assistant answer are appended; the oldest turns fall off once the
// bound is reached. Idle users expire after the configured TTL and the
// number of users held is capped, least recently used first.
//
// History is process local. After a restart, or on another instance,
// conversations start empty.
package conversation
