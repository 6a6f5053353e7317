package backends

import (
	"strings"
	"time"
)

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is the backend-agnostic conversation handed to Generate. It is
// built fresh per dispatch and must not be modified by backends.
type Request struct {
	// System is an optional instruction preceding the conversation.
	System string

	// Turns holds prior turns in chronological order, ending with the
	// new user turn.
	Turns []Turn
}

// LastUserText returns the text of the final user turn.
func (r *Request) LastUserText() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleUser {
			return r.Turns[i].Text
		}
	}
	return ""
}

// Response is the normalized answer every backend maps its raw reply into.
type Response struct {
	Text       string
	Model      string
	TokenCount int
}

// Availability is the coarse health state of a backend.
type Availability int

const (
	// Healthy backends are tried in priority order.
	Healthy Availability = iota

	// Degraded backends failed recently but are still tried.
	Degraded

	// Unhealthy backends are skipped until they pass a probe or succeed.
	Unhealthy
)

// String returns the lowercase name of the state.
func (a Availability) String() string {
	switch a {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// ParseAvailability is the inverse of String.
func ParseAvailability(s string) (Availability, bool) {
	switch strings.ToLower(s) {
	case "healthy":
		return Healthy, true
	case "degraded":
		return Degraded, true
	case "unhealthy":
		return Unhealthy, true
	default:
		return Healthy, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Descriptor is the registry's view of one backend.
type Descriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Priority int    `json:"priority"`

	Availability        Availability `json:"availability"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastCheckedAt       time.Time    `json:"last_checked_at,omitzero"`
	LastError           string       `json:"last_error,omitempty"`
}
