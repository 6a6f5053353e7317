package types

import (
	"fmt"
	"time"
	"unicode/utf8"

	"mercator-hq/pulse/pkg/backends"
)

// MaxMessageLength bounds a chat message in characters.
const MaxMessageLength = 8000

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Message is the user's new message. Required.
	Message string `json:"message"`

	// History optionally replaces the server-side conversation history.
	// Turns must be "user" or "assistant".
	History []backends.Turn `json:"history,omitempty"`

	// PreferredBackend is tried first when it is eligible.
	PreferredBackend string `json:"preferred_backend,omitempty"`
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks required fields and limits.
func (r *ChatRequest) Validate() error {
	if r.Message == "" {
		return &ValidationError{Field: "message", Message: "message is required"}
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return &ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("message exceeds %d characters", MaxMessageLength),
		}
	}
	for i, turn := range r.History {
		if turn.Role != backends.RoleUser && turn.Role != backends.RoleAssistant {
			return &ValidationError{
				Field:   fmt.Sprintf("history[%d].role", i),
				Message: "role must be user or assistant",
			}
		}
	}
	return nil
}

// ChatResponse is the body of a successful POST /v1/chat. An exhausted
// fallback chain is still a 200 with Success false and the apology text.
type ChatResponse struct {
	Text        string        `json:"text"`
	BackendUsed string        `json:"backend_used"`
	Model       string        `json:"model,omitempty"`
	Success     bool          `json:"success"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	LatencyMS   int64         `json:"latency_ms"`
	TokenCount  int           `json:"token_count,omitempty"`
	RateLimit   RateLimitInfo `json:"rate_limit"`
}

// RateLimitInfo describes the caller's remaining admission budget.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
