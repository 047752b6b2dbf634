// Package participants persists roster membership.
package participants

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles participant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert records a join. Rejoining refreshes the name and poll and clears any
// earlier kick flag.
func (r *Repository) Upsert(ctx context.Context, pollID, studentID, name string) error {
	const query = `INSERT INTO participants (id, poll_id, name, is_kicked, joined_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		ON CONFLICT (id) DO UPDATE SET poll_id = EXCLUDED.poll_id,
			name = EXCLUDED.name, is_kicked = FALSE, joined_at = NOW()`
	_, err := r.pool.Exec(ctx, query, studentID, pollID, name)
	return err
}

// MarkKicked flags a removed participant.
func (r *Repository) MarkKicked(ctx context.Context, studentID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE participants SET is_kicked = TRUE WHERE id = $1`, studentID)
	return err
}
