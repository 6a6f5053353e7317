package openai

import (
	"fmt"

	"mercator-hq/pulse/pkg/backends"
)

// chatRequest is an OpenAI chat completion request.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	User      string        `json:"user,omitempty"`
	N         int           `json:"n,omitempty"`
}

// chatMessage is a message in OpenAI format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is an OpenAI chat completion response.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// transformRequest maps a backend-agnostic request to OpenAI format. The
// system instruction stays in the messages array.
func transformRequest(req *backends.Request, model string, maxTokens int) *chatRequest {
	out := &chatRequest{
		Model:     model,
		Messages:  make([]chatMessage, 0, len(req.Turns)+1),
		MaxTokens: maxTokens,
		N:         1,
	}
	if req.System != "" {
		out.Messages = append(out.Messages, chatMessage{Role: backends.RoleSystem, Content: req.System})
	}
	for _, turn := range req.Turns {
		out.Messages = append(out.Messages, chatMessage{Role: turn.Role, Content: turn.Text})
	}
	return out
}

// transformResponse maps an OpenAI response to the normalized Response.
func transformResponse(resp *chatResponse) (*backends.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("empty content (finish reason %q)", choice.FinishReason)
	}

	return &backends.Response{
		Text:       choice.Message.Content,
		Model:      resp.Model,
		TokenCount: resp.Usage.TotalTokens,
	}, nil
}
