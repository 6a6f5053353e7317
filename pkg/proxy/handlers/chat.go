package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy"
	"mercator-hq/pulse/pkg/security/auth"
)

// ChatHandler serves POST /v1/chat. The caller must already be
// authenticated; the user id is read from the request context.
type ChatHandler struct {
	service ChatService
	logger  *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(service ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{service: service, logger: logger}
}

// ServeHTTP implements http.Handler.
//
// An admitted request always gets 200, including when every backend
// failed; the body's success flag tells the two apart. Rejections get 429
// with Retry-After.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := auth.UserID(ctx)
	if userID == "" {
		h.writeError(w, r, auth.ErrMissingToken)
		return
	}

	chatReq, err := proxy.ParseChatRequest(r)
	if err != nil {
		h.logger.InfoContext(ctx, "invalid chat request", "error", err)
		h.writeError(w, r, err)
		return
	}

	req := pipeline.Request{
		UserID:           userID,
		Text:             chatReq.Message,
		PreferredBackend: chatReq.PreferredBackend,
	}
	if chatReq.History != nil {
		req.History = make([]backends.Turn, len(chatReq.History))
		copy(req.History, chatReq.History)
	}

	reply, err := h.service.Chat(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := proxy.FormatChatResponse(reply)
	proxy.SetRateLimitHeaders(w, resp.RateLimit)
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rejected.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		if !rejected.ResetTime.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rejected.ResetTime.Unix(), 10))
		}
	}
	if werr := proxy.WriteError(w, err); werr != nil {
		h.logger.ErrorContext(r.Context(), "failed to write error response", "error", werr)
	}
}
