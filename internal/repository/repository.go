package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-stream/backend/internal/model"
)

// MessageRepository is the conversation store: an append-only log of messages
// that can be read back per session.
type MessageRepository interface {
	// AddMessage appends msg to its session. A missing ID or CreatedAt is
	// filled in before the write.
	AddMessage(ctx context.Context, msg *model.Message) error

	// ListBySession returns the messages of a session in insertion order.
	// An unknown session yields an empty slice.
	ListBySession(ctx context.Context, sessionID string) ([]model.Message, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

func stamp(msg *model.Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
}
