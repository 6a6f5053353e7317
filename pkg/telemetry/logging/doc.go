// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package builds a *slog.Logger whose handler:
//   - Encodes records as JSON or text
//   - Adds request_id, user_id, conn_id and backend from the context
//   - Masks bearer tokens, JWTs and API keys when redaction is enabled
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithUser(ctx, "u-42")
//	logger.InfoContext(ctx, "message admitted", "count", 3)
//	// {"msg":"message admitted","user_id":"u-42","count":3,...}
package logging
