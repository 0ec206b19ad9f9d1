package repository

import (
	"context"
	"database/sql"
	"fmt"

	"chat-stream/backend/internal/model"
)

// postgresRepository talks to the hosted store through the pgx database/sql
// driver. Rows carry a serial column so equal timestamps keep insertion order.
type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) MessageRepository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) AddMessage(ctx context.Context, msg *model.Message) error {
	stamp(msg)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO messages(id, session_id, role, content, created_at)
VALUES($1, $2, $3, $4, $5)`,
		msg.ID,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not insert message: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, role, content, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at ASC, seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("could not query messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
