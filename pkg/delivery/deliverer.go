package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mercator-hq/pulse/pkg/session"
	"mercator-hq/pulse/pkg/telemetry/metrics"
)

// Message is an outbound frame. Kind labels it in logs and metrics.
type Message interface {
	Kind() string
}

// Options configures a Deliverer.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Deliverer writes messages to connections held by the session registry.
type Deliverer struct {
	sessions *session.Registry
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// New creates a deliverer over sessions.
func New(sessions *session.Registry, opts Options) *Deliverer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Deliverer{
		sessions: sessions,
		logger:   opts.Logger.With("component", "delivery"),
		metrics:  opts.Metrics,
	}
}

// DeliverToUser sends msg to every connection of userID except
// excludeConnID (empty excludes nothing). It returns the number of
// connections that accepted the frame.
func (d *Deliverer) DeliverToUser(ctx context.Context, userID string, msg Message, excludeConnID string) int {
	conns := d.sessions.Connections(userID)
	if len(conns) == 0 {
		return 0
	}
	frame, ok := d.encode(ctx, msg)
	if !ok {
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if conn.ID == excludeConnID {
			continue
		}
		if d.send(ctx, conn, msg.Kind(), frame) {
			delivered++
		}
	}
	return delivered
}

// DeliverToConnection sends msg to a single connection. It reports whether
// the connection exists and accepted the frame.
func (d *Deliverer) DeliverToConnection(ctx context.Context, connID string, msg Message) bool {
	conn, ok := d.sessions.Connection(connID)
	if !ok {
		d.logger.DebugContext(ctx, "delivery target not connected", "conn_id", connID, "kind", msg.Kind())
		return false
	}
	frame, ok := d.encode(ctx, msg)
	if !ok {
		return false
	}
	return d.send(ctx, conn, msg.Kind(), frame)
}

// Broadcast sends msg to every live connection.
func (d *Deliverer) Broadcast(ctx context.Context, msg Message) int {
	conns := d.sessions.All()
	if len(conns) == 0 {
		return 0
	}
	frame, ok := d.encode(ctx, msg)
	if !ok {
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if d.send(ctx, conn, msg.Kind(), frame) {
			delivered++
		}
	}
	return delivered
}

func (d *Deliverer) encode(ctx context.Context, msg Message) ([]byte, bool) {
	frame, err := json.Marshal(msg)
	if err != nil {
		d.metrics.RecordDeliveryFailure()
		d.logger.ErrorContext(ctx, "failed to encode outbound message", "kind", msg.Kind(), "error", err)
		return nil, false
	}
	return frame, true
}

func (d *Deliverer) send(ctx context.Context, conn *session.Connection, kind string, frame []byte) bool {
	if err := conn.Send(ctx, frame); err != nil {
		d.metrics.RecordDeliveryFailure()
		d.logger.WarnContext(ctx, "delivery failed",
			"conn_id", conn.ID,
			"user_id", conn.UserID,
			"kind", kind,
			"error", fmt.Errorf("send: %w", err),
		)
		return false
	}
	d.metrics.RecordDelivery(kind)
	return true
}
