// Package polls persists polls, options and votes, and serves the poll
// history API. All writes are called fire-and-forget from the router; they
// use upsert semantics keyed by the client-chosen stable ids so retries and
// reconnect replays are harmless.
package polls

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sujay149/intervue-task/internal/models"
)

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the poll and its options on round start.
func (r *Repository) Upsert(ctx context.Context, p *models.Poll) error {
	const pollQuery = `INSERT INTO polls (id, question, duration, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (id) DO UPDATE SET question = EXCLUDED.question,
			duration = EXCLUDED.duration, is_active = TRUE`
	if _, err := r.pool.Exec(ctx, pollQuery,
		p.ID, p.Question, p.Duration, time.UnixMilli(p.CreatedAt)); err != nil {
		return fmt.Errorf("upsert poll: %w", err)
	}

	const optionQuery = `INSERT INTO poll_options (id, poll_id, text, is_correct, option_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, is_correct = EXCLUDED.is_correct`
	for i, opt := range p.Options {
		if _, err := r.pool.Exec(ctx, optionQuery, opt.ID, p.ID, opt.Text, opt.IsCorrect, i); err != nil {
			return fmt.Errorf("upsert option %s: %w", opt.ID, err)
		}
	}
	return nil
}

// MarkInactive flags the poll closed on round end.
func (r *Repository) MarkInactive(ctx context.Context, pollID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE polls SET is_active = FALSE WHERE id = $1`, pollID)
	return err
}

// InsertVote records one vote. The in-memory admission gate already rejected
// duplicates, so a conflicting row here is a replay and is dropped.
func (r *Repository) InsertVote(ctx context.Context, pollID, studentID, optionID string) error {
	const query = `INSERT INTO votes (poll_id, participant_id, option_id, voted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (poll_id, participant_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, pollID, studentID, optionID)
	return err
}

// ListHistory returns closed polls oldest-first with per-option vote counts
// recomputed from the votes table.
func (r *Repository) ListHistory(ctx context.Context) ([]models.Poll, error) {
	const pollQuery = `SELECT id, question, duration, created_at FROM polls
		WHERE is_active = FALSE ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, pollQuery)
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()

	var polls []models.Poll
	index := make(map[string]int)
	for rows.Next() {
		var p models.Poll
		var createdAt time.Time
		if err := rows.Scan(&p.ID, &p.Question, &p.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		p.CreatedAt = createdAt.UnixMilli()
		index[p.ID] = len(polls)
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return []models.Poll{}, nil
	}

	const optionQuery = `SELECT o.id, o.poll_id, o.text, o.is_correct,
			(SELECT COUNT(*) FROM votes v WHERE v.option_id = o.id) AS votes
		FROM poll_options o
		JOIN polls p ON p.id = o.poll_id
		WHERE p.is_active = FALSE
		ORDER BY o.poll_id, o.option_index ASC`
	optRows, err := r.pool.Query(ctx, optionQuery)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt models.PollOption
		var pollID string
		if err := optRows.Scan(&opt.ID, &pollID, &opt.Text, &opt.IsCorrect, &opt.Votes); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if i, ok := index[pollID]; ok {
			polls[i].Options = append(polls[i].Options, opt)
		}
	}
	return polls, optRows.Err()
}
