package live

import (
	"context"

	"github.com/Sujay149/intervue-task/internal/models"
)

// PollWriter persists polls and votes. Every call is a best-effort side
// effect keyed by stable ids, idempotent under upsert semantics. The router
// never awaits these before broadcasting.
type PollWriter interface {
	Upsert(ctx context.Context, poll *models.Poll) error
	MarkInactive(ctx context.Context, pollID string) error
	InsertVote(ctx context.Context, pollID, studentID, optionID string) error
}

// ParticipantWriter persists roster membership.
type ParticipantWriter interface {
	Upsert(ctx context.Context, pollID, studentID, name string) error
	MarkKicked(ctx context.Context, studentID string) error
}

// ChatWriter persists chat messages.
type ChatWriter interface {
	Insert(ctx context.Context, pollID string, msg models.ChatMessage) error
}

// The Nop writers implement realtime-only mode, used when no database is
// configured.

type NopPollWriter struct{}

func (NopPollWriter) Upsert(context.Context, *models.Poll) error { return nil }
func (NopPollWriter) MarkInactive(context.Context, string) error { return nil }
func (NopPollWriter) InsertVote(context.Context, string, string, string) error {
	return nil
}

type NopParticipantWriter struct{}

func (NopParticipantWriter) Upsert(context.Context, string, string, string) error { return nil }
func (NopParticipantWriter) MarkKicked(context.Context, string) error             { return nil }

type NopChatWriter struct{}

func (NopChatWriter) Insert(context.Context, string, models.ChatMessage) error { return nil }
