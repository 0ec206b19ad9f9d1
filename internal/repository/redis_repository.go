package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-stream/backend/internal/model"
)

// redisRepository keeps each message in a hash and indexes a session with a
// sorted set scored by a per-session sequence number.
type redisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) MessageRepository {
	return &redisRepository{rdb: rdb}
}

// Key Generation Helpers
func (r *redisRepository) messageKey(messageID string) string { return fmt.Sprintf("message:%s", messageID) }
func (r *redisRepository) messagesKey(sessionID string) string {
	return fmt.Sprintf("session:%s:messages", sessionID)
}
func (r *redisRepository) seqKey(sessionID string) string { return fmt.Sprintf("session:%s:seq", sessionID) }

func (r *redisRepository) AddMessage(ctx context.Context, msg *model.Message) error {
	stamp(msg)

	seq, err := r.rdb.Incr(ctx, r.seqKey(msg.SessionID)).Result()
	if err != nil {
		return fmt.Errorf("could not allocate message sequence: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.messageKey(msg.ID), map[string]interface{}{
		"id":         msg.ID,
		"session_id": msg.SessionID,
		"role":       string(msg.Role),
		"content":    msg.Content,
		"created_at": msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.ZAdd(ctx, r.messagesKey(msg.SessionID), redis.Z{Score: float64(seq), Member: msg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not store message: %w", err)
	}
	return nil
}

func (r *redisRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	msgIDs, err := r.rdb.ZRange(ctx, r.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.Message{}, nil
		}
		return nil, fmt.Errorf("could not list message ids: %w", err)
	}
	if len(msgIDs) == 0 {
		return []model.Message{}, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(msgIDs))
	for i, id := range msgIDs {
		cmds[i] = pipe.HGetAll(ctx, r.messageKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("could not load messages: %w", err)
	}

	messages := make([]model.Message, 0, len(msgIDs))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
		if err != nil {
			return nil, fmt.Errorf("message %s has invalid created_at: %w", msgIDs[i], err)
		}
		messages = append(messages, model.Message{
			ID:        fields["id"],
			SessionID: fields["session_id"],
			Role:      model.Role(fields["role"]),
			Content:   fields["content"],
			CreatedAt: createdAt,
		})
	}
	return messages, nil
}

func (r *redisRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
