package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy/types"
)

// FormatChatResponse converts a pipeline reply to the HTTP response body.
func FormatChatResponse(reply *pipeline.Reply) *types.ChatResponse {
	res := reply.Result
	return &types.ChatResponse{
		Text:        res.Text,
		BackendUsed: res.BackendUsed,
		Model:       res.Model,
		Success:     res.Success,
		ErrorKind:   res.ErrorKind,
		LatencyMS:   res.LatencyMS,
		TokenCount:  res.TokenCount,
		RateLimit: types.RateLimitInfo{
			Limit:     reply.Admission.Limit,
			Remaining: reply.Admission.Remaining(),
			ResetAt:   reply.Admission.ResetTime,
		},
	}
}

// SetRateLimitHeaders sets the X-RateLimit-* headers from a response body.
func SetRateLimitHeaders(w http.ResponseWriter, info types.RateLimitInfo) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if !info.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
	}
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error body with the status code implied by
// its type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}

// WriteError maps err and writes it, adding Retry-After for admission
// rejections.
func WriteError(w http.ResponseWriter, err error) error {
	if secs := RetryAfter(err); secs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	return WriteErrorResponse(w, HandleError(err))
}
