package handlers

import (
	"context"

	"mercator-hq/pulse/pkg/backends"
	"mercator-hq/pulse/pkg/pipeline"
)

// ChatService admits and answers one chat message.
type ChatService interface {
	Chat(ctx context.Context, req pipeline.Request) (*pipeline.Reply, error)
}

// BackendStatus reports backend health for the health endpoints.
type BackendStatus interface {
	Descriptors() []backends.Descriptor
	Available() int
}
