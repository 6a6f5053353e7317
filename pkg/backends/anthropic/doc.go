// Package anthropic implements a backend on Anthropic's Messages API.
//
//	backends:
//	  - name: claude
//	    type: anthropic
//	    base_url: "https://api.anthropic.com"
//	    model: "claude-3-5-haiku-latest"
//
// The Messages API takes the system instruction as a separate field and
// requires alternating user and assistant turns starting with a user turn.
// The adapter normalizes the conversation to fit: leading assistant turns
// are dropped and consecutive same-role turns are joined.
package anthropic
