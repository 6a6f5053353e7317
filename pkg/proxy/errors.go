package proxy

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/pulse/pkg/limits/ratelimit"
	"mercator-hq/pulse/pkg/pipeline"
	"mercator-hq/pulse/pkg/proxy/types"
	"mercator-hq/pulse/pkg/security/auth"
)

// HandleError converts an error to the JSON error body. Backend failures
// never reach here; they are absorbed by dispatch.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var valErr *types.ValidationError
	if errors.As(err, &valErr) {
		return types.NewInvalidRequestError(valErr.Message, valErr.Field, types.CodeInvalidValue)
	}

	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		return types.NewRateLimitError(
			fmt.Sprintf("Rate limit exceeded. Retry in %d seconds.", rejected.RetryAfterSeconds()),
		)
	}

	switch {
	case errors.Is(err, pipeline.ErrEmptyMessage):
		return types.NewInvalidRequestError("message is required", "message", types.CodeMissingField)
	case errors.Is(err, auth.ErrMissingToken):
		return types.NewAuthenticationError("Missing bearer token", types.CodeMissingToken)
	case errors.Is(err, auth.ErrExpiredToken):
		return types.NewAuthenticationError("Bearer token expired", types.CodeExpiredToken)
	case errors.Is(err, auth.ErrInvalidToken):
		return types.NewAuthenticationError("Invalid bearer token", types.CodeInvalidToken)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewGatewayTimeoutError("The request took too long to complete")
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

// RetryAfter returns the Retry-After value in seconds for err, or 0 when
// the error carries none.
func RetryAfter(err error) int {
	var rejected *ratelimit.RejectedError
	if errors.As(err, &rejected) {
		return rejected.RetryAfterSeconds()
	}
	return 0
}
