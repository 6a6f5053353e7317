package anthropic

import (
	"fmt"
	"strings"

	"mercator-hq/pulse/pkg/backends"
)

// messagesRequest is an Anthropic Messages API request.
type messagesRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// contentBlock is one block of a response. Only text blocks are used.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// messagesResponse is an Anthropic Messages API response.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// transformRequest maps a backend-agnostic request to Anthropic format.
//
// The API takes the system instruction as a separate field and requires
// the conversation to start with a user turn and alternate roles. Leading
// assistant turns are dropped and consecutive turns from the same role are
// joined.
func transformRequest(req *backends.Request, model string, maxTokens int) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  make([]message, 0, len(req.Turns)),
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = 4096
	}

	for _, turn := range req.Turns {
		switch turn.Role {
		case backends.RoleSystem:
			if out.System == "" {
				out.System = turn.Text
			} else {
				out.System += "\n\n" + turn.Text
			}
			continue
		case backends.RoleUser, backends.RoleAssistant:
		default:
			return nil, &backends.ValidationError{
				Field:   "turns",
				Message: fmt.Sprintf("unsupported role %q", turn.Role),
			}
		}

		if len(out.Messages) == 0 && turn.Role != backends.RoleUser {
			continue
		}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == turn.Role {
			out.Messages[n-1].Content += "\n\n" + turn.Text
			continue
		}
		out.Messages = append(out.Messages, message{Role: turn.Role, Content: turn.Text})
	}

	if len(out.Messages) == 0 {
		return nil, &backends.ValidationError{
			Field:   "turns",
			Message: "at least one user turn is required",
		}
	}
	return out, nil
}

// transformResponse joins text blocks into the normalized Response.
func transformResponse(resp *messagesResponse) (*backends.Response, error) {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no text content (stop reason %q)", resp.StopReason)
	}

	return &backends.Response{
		Text:       sb.String(),
		Model:      resp.Model,
		TokenCount: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}
