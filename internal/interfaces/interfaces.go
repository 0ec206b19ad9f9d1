package interfaces

import (
	"context"

	"chat-stream/backend/internal/model"
	"chat-stream/backend/internal/service"
)

// The API layer depends on these interfaces rather than on concrete services
// so handlers can be tested against generated mocks.

// ChatService defines the contract for chat-related business logic.
type ChatService interface {
	StreamMessage(ctx context.Context, req service.StreamRequest, sink service.EventSink) (model.StreamOutcome, error)
	SendMessage(ctx context.Context, req service.SendRequest) (*service.SendResult, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	NewSession() string
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
