package session

import (
	"context"
	"sync/atomic"
	"time"
)

// Sender writes an encoded frame to one physical connection.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, frame []byte) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, frame []byte) error {
	return f(ctx, frame)
}

// Connection is one authenticated physical connection.
type Connection struct {
	ID              string
	UserID          string
	RemoteAddr      string
	AuthenticatedAt time.Time

	sender     Sender
	lastActive atomic.Int64
}

// NewConnection creates a connection that writes through sender.
func NewConnection(id, remoteAddr string, sender Sender) *Connection {
	return &Connection{
		ID:         id,
		RemoteAddr: remoteAddr,
		sender:     sender,
	}
}

// Send writes a frame to the connection.
func (c *Connection) Send(ctx context.Context, frame []byte) error {
	return c.sender.Send(ctx, frame)
}

// Touch records activity at t.
func (c *Connection) Touch(t time.Time) {
	c.lastActive.Store(t.UnixNano())
}

// LastActiveAt returns the time of the last recorded activity.
func (c *Connection) LastActiveAt() time.Time {
	ns := c.lastActive.Load()
	if ns == 0 {
		return c.AuthenticatedAt
	}
	return time.Unix(0, ns)
}

// Info is a read-only snapshot of a connection.
type Info struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	RemoteAddr      string    `json:"remote_addr,omitempty"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	LastActiveAt    time.Time `json:"last_active_at"`
}

// Info returns a snapshot of the connection.
func (c *Connection) Info() Info {
	return Info{
		ID:              c.ID,
		UserID:          c.UserID,
		RemoteAddr:      c.RemoteAddr,
		AuthenticatedAt: c.AuthenticatedAt,
		LastActiveAt:    c.LastActiveAt(),
	}
}
