// Package session tracks which authenticated connections belong to which
// user.
//
// A user may hold many connections at once (several tabs or devices). The
// Registry keeps the index userID → set of connection ids and owns each
// Connection from successful authentication until the physical link
// closes. A connection id belongs to at most one user, and a user entry is
// removed as soon as its last connection goes away.
//
// Unregister is idempotent. Disconnect hooks run once per removed
// connection, after the index has been updated, with the ids of the
// user's remaining connections.
//
// The index is process local. Fan-out across instances needs a shared
// publish/subscribe layer in front of it.
package session
