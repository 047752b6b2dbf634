// Package chat persists classroom chat messages.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sujay149/intervue-task/internal/models"
)

// Repository handles chat persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one message.
func (r *Repository) Insert(ctx context.Context, pollID string, msg models.ChatMessage) error {
	const query = `INSERT INTO chat_messages (id, poll_id, user_id, user_name, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, pollID, msg.UserID, msg.UserName, msg.Text, time.UnixMilli(msg.Timestamp))
	return err
}

// ListRecent returns up to limit messages for a poll, oldest first.
func (r *Repository) ListRecent(ctx context.Context, pollID string, limit int) ([]models.ChatMessage, error) {
	const query = `SELECT id, user_id, user_name, message, created_at
		FROM (SELECT * FROM chat_messages WHERE poll_id = $1 ORDER BY created_at DESC LIMIT $2) m
		ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, query, pollID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var createdAt time.Time
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.UserName, &msg.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Timestamp = createdAt.UnixMilli()
		out = append(out, msg)
	}
	return out, rows.Err()
}
