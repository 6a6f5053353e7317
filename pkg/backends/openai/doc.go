// Package openai implements a backend on OpenAI's chat completions API.
//
// Any service exposing the same /chat/completions and /models endpoints
// (for example a local vLLM or Ollama server) can be used by pointing
// base_url at it:
//
//	backends:
//	  - name: openai
//	    type: openai
//	    base_url: "https://api.openai.com/v1"
//	    model: "gpt-4o-mini"
//
// The system instruction is sent as the first message. Errors map as:
//
//   - 401/403 -> AuthError
//   - 429 -> RateLimitError (includes retry-after)
//   - other 4xx -> StatusError (fatal)
//   - 5xx -> StatusError (retried, then recoverable)
package openai
