package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mercator-hq/pulse/pkg/config"
	"mercator-hq/pulse/pkg/delivery"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy"
	"mercator-hq/pulse/pkg/proxy/types"
	"mercator-hq/pulse/pkg/security/auth"
	"mercator-hq/pulse/pkg/session"
	"mercator-hq/pulse/pkg/telemetry/logging"
)

// StatusInvalidCredentials is the close code sent when the handshake token
// is missing or does not verify.
const StatusInvalidCredentials websocket.StatusCode = 4001

var (
	errSendBufferFull = errors.New("send buffer full")
	errConnClosed     = errors.New("connection closed")
)

// WebSocketOptions configures the real-time handler.
type WebSocketOptions struct {
	// TokenSources lists where the handshake token may be found.
	// Default: Authorization bearer header, then ?token=
	TokenSources []auth.TokenSource

	// SendBuffer is the per-connection outbound frame buffer. Default: 32
	SendBuffer int

	// ChatQueue is the per-connection queue of pending chat messages.
	// Default: 16
	ChatQueue int

	// WriteTimeout bounds each frame write and ping. Default: 10s
	WriteTimeout time.Duration

	// PingInterval is the keepalive period. Default: 30s
	PingInterval time.Duration

	// MaxMessageBytes limits inbound frame size. Default: 65536
	MaxMessageBytes int64

	// OriginPatterns are accepted for cross-origin handshakes.
	OriginPatterns []string

	Logger *slog.Logger
	Now    func() time.Time
}

// WebSocketOptionsFromConfig maps the realtime and auth sections.
func WebSocketOptionsFromConfig(rt config.RealtimeConfig, authCfg config.AuthConfig) WebSocketOptions {
	return WebSocketOptions{
		TokenSources:    auth.DefaultSources(authCfg.QueryParam),
		SendBuffer:      rt.SendBuffer,
		ChatQueue:       rt.ChatQueue,
		WriteTimeout:    rt.WriteTimeout,
		PingInterval:    rt.PingInterval,
		MaxMessageBytes: rt.MaxMessageBytes,
		OriginPatterns:  rt.AllowedOrigins,
	}
}

// WebSocketHandler serves the real-time endpoint. Each connection has a
// reader, a writer and a chat worker; chat messages are answered through
// the same pipeline as POST /v1/chat and the answer is delivered to every
// connection of the user.
type WebSocketHandler struct {
	service   ChatService
	sessions  *session.Registry
	deliverer *delivery.Deliverer
	opts      WebSocketOptions
	logger    *slog.Logger

	// ctx is cancelled by Close to end every open connection.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocketHandler creates the real-time handler.
func NewWebSocketHandler(service ChatService, sessions *session.Registry, deliverer *delivery.Deliverer, opts WebSocketOptions) *WebSocketHandler {
	if len(opts.TokenSources) == 0 {
		opts.TokenSources = auth.DefaultSources(config.DefaultAuthQueryParam)
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = config.DefaultSendBuffer
	}
	if opts.ChatQueue <= 0 {
		opts.ChatQueue = config.DefaultChatQueue
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = config.DefaultWSWriteTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = config.DefaultPingInterval
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = config.DefaultMaxMessageBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHandler{
		service:   service,
		sessions:  sessions,
		deliverer: deliverer,
		opts:      opts,
		logger:    opts.Logger.With("component", "realtime"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close ends every open connection with StatusGoingAway. Hijacked
// connections are not tracked by http.Server.Shutdown.
func (h *WebSocketHandler) Close() {
	h.cancel()
}

// NotifyDisconnect returns a session hook that tells a user's remaining
// connections that one of their connections closed.
func NotifyDisconnect(deliverer *delivery.Deliverer, now func() time.Time) session.DisconnectHook {
	if now == nil {
		now = time.Now
	}
	return func(conn session.Info, remaining []string) {
		if len(remaining) == 0 {
			return
		}
		deliverer.DeliverToUser(context.Background(), conn.UserID,
			types.NewUserDisconnected(conn.UserID, conn.ID, now()), "")
	}
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.logger.InfoContext(r.Context(), "websocket handshake failed", "error", err)
		return
	}

	connID := uuid.NewString()
	ctx := logging.WithConnection(r.Context(), connID)

	token, err := auth.ExtractToken(r, h.opts.TokenSources)
	var userID string
	if err == nil {
		userID, err = h.sessions.Authenticate(ctx, connID, token)
	}
	if err != nil {
		h.logger.InfoContext(ctx, "rejecting unauthenticated connection", "error", err)
		_ = ws.Close(StatusInvalidCredentials, "invalid credentials")
		return
	}
	ctx = logging.WithUser(ctx, userID)
	ws.SetReadLimit(h.opts.MaxMessageBytes)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	c := &wsConn{
		handler: h,
		ws:      ws,
		id:      connID,
		userID:  userID,
		out:     make(chan []byte, h.opts.SendBuffer),
		chats:   make(chan types.InboundFrame, h.opts.ChatQueue),
		done:    ctx.Done(),
	}
	conn := session.NewConnection(connID, r.RemoteAddr, session.SenderFunc(c.enqueue))

	if err := h.sessions.Register(userID, conn); err != nil {
		h.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		_ = ws.Close(websocket.StatusInternalError, "registration failed")
		return
	}
	c.conn = conn

	h.deliverer.DeliverToConnection(ctx, connID,
		types.NewConnectionEstablished(userID, connID, conn.AuthenticatedAt))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error { return c.chatLoop(gctx) })
	g.Go(func() error { return c.readLoop(gctx) })
	err = g.Wait()

	h.sessions.Unregister(connID)

	switch {
	case websocket.CloseStatus(err) != -1:
		h.logger.InfoContext(ctx, "connection closed by client", "status", websocket.CloseStatus(err))
		_ = ws.CloseNow()
	case h.ctx.Err() != nil:
		_ = ws.Close(websocket.StatusGoingAway, "server shutting down")
	case r.Context().Err() != nil || errors.Is(err, context.Canceled):
		_ = ws.CloseNow()
	default:
		h.logger.WarnContext(ctx, "connection failed", "error", err)
		_ = ws.CloseNow()
	}
}

// wsConn is the per-connection state shared by the three loops.
type wsConn struct {
	handler *WebSocketHandler
	ws      *websocket.Conn
	conn    *session.Connection
	id      string
	userID  string

	out   chan []byte
	chats chan types.InboundFrame
	done  <-chan struct{}
}

// enqueue hands a frame to the writer without blocking. A full buffer
// drops the frame.
func (c *wsConn) enqueue(_ context.Context, frame []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.out <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsConn) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.handler.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case frame := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, c.handler.opts.WriteTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				return fmt.Errorf("write frame: %w", err)
			}

		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, c.handler.opts.WriteTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("keepalive ping: %w", err)
			}
		}
	}
}

func (c *wsConn) readLoop(ctx context.Context) error {
	h := c.handler
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return err
		}
		c.conn.Touch(h.opts.Now())

		if typ != websocket.MessageText {
			c.sendError(ctx, types.NewErrorFrame(types.CodeInvalidValue, "binary frames are not supported"))
			continue
		}

		var frame types.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError(ctx, types.NewErrorFrame(types.CodeInvalidJSON, "frame is not valid JSON"))
			continue
		}
		if err := frame.Validate(); err != nil {
			c.sendError(ctx, invalidFrame(err))
			continue
		}

		switch frame.Type {
		case types.FramePing:
			h.deliverer.DeliverToConnection(ctx, c.id, types.NewPong(h.opts.Now()))

		case types.FrameTypingStart, types.FrameTypingStop:
			h.deliverer.DeliverToUser(ctx, c.userID,
				types.NewUserTyping(c.userID, frame.Type == types.FrameTypingStart), c.id)

		case types.FrameVoiceRecordingStart, types.FrameVoiceRecordingStop:
			h.deliverer.DeliverToUser(ctx, c.userID,
				types.NewUserRecording(c.userID, frame.Type == types.FrameVoiceRecordingStart), c.id)

		case types.FrameChatMessage:
			select {
			case c.chats <- frame:
			default:
				h.logger.WarnContext(ctx, "chat queue full, rejecting message")
				c.sendError(ctx, types.NewErrorFrame(types.CodeQueueFull,
					"Too many messages in flight. Wait for a reply and try again."))
			}
		}
	}
}

// chatLoop answers queued messages one at a time. When the connection
// ends mid-dispatch the loop returns at once and the in-flight message is
// left to finish in the background, so the user's other connections still
// get the answer.
func (c *wsConn) chatLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-c.chats:
			done := make(chan struct{})
			go func() {
				defer close(done)
				c.chat(ctx, frame)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// chat answers one message. The user's own text is mirrored to their other
// connections; the answer goes to all of them, sender included. Dispatch is
// detached from the sending connection and only ends early on Close.
func (c *wsConn) chat(connCtx context.Context, frame types.InboundFrame) {
	h := c.handler

	ctx, cancel := context.WithCancel(context.WithoutCancel(connCtx))
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	reply, err := h.service.Chat(ctx, pipeline.Request{
		UserID:           c.userID,
		Text:             frame.Text,
		PreferredBackend: frame.Backend,
	})
	if err != nil {
		if ctx.Err() != nil || connCtx.Err() != nil {
			return
		}
		c.sendError(ctx, errorFrameFor(err))
		return
	}

	now := h.opts.Now()
	h.deliverer.DeliverToUser(ctx, c.userID,
		types.NewChatBroadcast(c.userID, types.RoleUser, frame.Text, now), c.id)

	answer := types.NewChatBroadcast(c.userID, types.RoleAssistant, reply.Result.Text, now)
	answer.BackendUsed = reply.Result.BackendUsed
	answer.Success = reply.Result.Success
	h.deliverer.DeliverToUser(ctx, c.userID, answer, "")
}

func (c *wsConn) sendError(ctx context.Context, frame types.ErrorFrame) {
	c.handler.deliverer.DeliverToConnection(ctx, c.id, frame)
}

// errorFrameFor maps a pipeline error to the frame sent to the sender.
func errorFrameFor(err error) types.ErrorFrame {
	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		frame := types.NewErrorFrame(types.CodeRateLimited,
			fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", rejected.RetryAfterSeconds()))
		frame.RetryAfter = rejected.RetryAfterSeconds()
		if !rejected.ResetTime.IsZero() {
			reset := rejected.ResetTime
			frame.ResetTime = &reset
		}
		return frame
	}

	resp := proxy.HandleError(err)
	return types.NewErrorFrame(resp.Error.Code, resp.Error.Message)
}

func invalidFrame(err error) types.ErrorFrame {
	if errors.Is(err, types.ErrUnknownFrame) {
		return types.NewErrorFrame(types.CodeUnknownFrame, "unknown frame type")
	}
	var valErr *types.ValidationError
	if errors.As(err, &valErr) {
		return types.NewErrorFrame(types.CodeInvalidValue, valErr.Message)
	}
	return types.NewErrorFrame(types.CodeInvalidValue, err.Error())
}
