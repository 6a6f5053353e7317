package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

var (
	// ErrConnectionOwned is returned when a connection id is registered for a
	// second user.
	ErrConnectionOwned = errors.New("connection already registered to another user")

	// ErrInvalidConnection is returned for a nil connection or empty ids.
	ErrInvalidConnection = errors.New("invalid connection")
)

// DisconnectHook is called after a connection is removed. remaining holds
// the ids of the user's connections still registered, possibly none.
type DisconnectHook func(conn Info, remaining []string)

// Stats summarizes the index.
type Stats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
}

// Options configures a Registry.
type Options struct {
	Verifier auth.TokenVerifier
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	Now      func() time.Time
}

// Registry is the session index.
type Registry struct {
	verifier auth.TokenVerifier
	logger   *slog.Logger
	metrics  *metrics.Collector
	now      func() time.Time

	mu          sync.RWMutex
	connections map[string]*Connection
	users       map[string]map[string]struct{}
	hooks       []DisconnectHook
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		verifier:    opts.Verifier,
		logger:      opts.Logger.With("component", "session"),
		metrics:     opts.Metrics,
		now:         opts.Now,
		connections: make(map[string]*Connection),
		users:       make(map[string]map[string]struct{}),
	}
}

// OnDisconnect registers a hook run after every removal.
func (r *Registry) OnDisconnect(hook DisconnectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Authenticate verifies the token presented on connID and returns the user
// id. It does not register the connection.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) (string, error) {
	if r.verifier == nil {
		return "", fmt.Errorf("%w: no verifier configured", auth.ErrInvalidToken)
	}
	id, err := r.verifier.Verify(ctx, token)
	if err != nil {
		r.logger.WarnContext(ctx, "connection authentication failed", "conn_id", connID, "error", err)
		return "", err
	}
	return id.UserID, nil
}

// Register adds conn under userID. Registering the same connection id for
// the same user again is a no-op.
func (r *Registry) Register(userID string, conn *Connection) error {
	if conn == nil || conn.ID == "" || userID == "" {
		return ErrInvalidConnection
	}

	r.mu.Lock()
	if existing, ok := r.connections[conn.ID]; ok {
		r.mu.Unlock()
		if existing.UserID != userID {
			return fmt.Errorf("%w: %s", ErrConnectionOwned, conn.ID)
		}
		return nil
	}

	now := r.now()
	conn.UserID = userID
	if conn.AuthenticatedAt.IsZero() {
		conn.AuthenticatedAt = now
	}
	conn.Touch(now)

	r.connections[conn.ID] = conn
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[conn.ID] = struct{}{}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.metrics.UpdateSessions(stats.Connections, stats.Users)
	r.logger.Info("connection registered",
		"conn_id", conn.ID,
		"user_id", userID,
		"user_connections", len(set),
	)
	return nil
}

// Unregister removes the connection. It reports whether anything was
// removed; a second call for the same id does nothing.
func (r *Registry) Unregister(connID string) bool {
	r.mu.Lock()
	conn, ok := r.connections[connID]
	if !ok {
		r.mu.Unlock()
		return false
	}

	delete(r.connections, connID)
	var remaining []string
	if set, ok := r.users[conn.UserID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, conn.UserID)
		} else {
			remaining = sortedIDs(set)
		}
	}
	stats := r.statsLocked()
	hooks := append([]DisconnectHook(nil), r.hooks...)
	r.mu.Unlock()

	r.metrics.UpdateSessions(stats.Connections, stats.Users)
	r.logger.Info("connection unregistered",
		"conn_id", connID,
		"user_id", conn.UserID,
		"remaining", len(remaining),
	)

	info := conn.Info()
	for _, hook := range hooks {
		hook(info, remaining)
	}
	return true
}

// ConnectionsFor returns the user's connection ids in sorted order.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.users[userID]
	if !ok {
		return nil
	}
	return sortedIDs(set)
}

// Connections returns the user's live connections.
func (r *Registry) Connections(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.users[userID]
	if !ok {
		return nil
	}
	out := make([]*Connection, 0, len(set))
	for _, id := range sortedIDs(set) {
		out = append(out, r.connections[id])
	}
	return out
}

// Connection returns a connection by id.
func (r *Registry) Connection(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[connID]
	return conn, ok
}

// All returns every live connection ordered by id.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns connection and user counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	return Stats{Connections: len(r.connections), Users: len(r.users)}
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
