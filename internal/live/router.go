// Package live implements the classroom protocol state machine: it validates
// inbound socket events against the session store, mutates it, fans results
// out through the broadcaster and runs the round timers.
package live

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Sujay149/intervue-task/internal/models"
	"github.com/Sujay149/intervue-task/internal/session"
)

const persistTimeout = 5 * time.Second

// DefaultGrace is the pause between "everyone answered" and auto-close, long
// enough for the final tally broadcast to land before poll:ended supersedes it.
const DefaultGrace = time.Second

// Broadcaster fans outbound events to connected transports. Three addressing
// modes: everyone, one room, one connection. Delivery is best effort to
// currently connected transports only; late joiners get state from the join
// snapshot instead of replay.
type Broadcaster interface {
	BroadcastAll(event string, payload interface{})
	BroadcastToRoom(room, event string, payload interface{})
	SendToClient(socketID, event string, payload interface{})
	JoinRoom(socketID, room string)
}

// Config wires a Router. Zero-value fields get working defaults: a real
// clock, no-op writers, a nop logger and DefaultGrace.
type Config struct {
	Store        *session.Store
	Hub          Broadcaster
	Polls        PollWriter
	Participants ParticipantWriter
	Chat         ChatWriter
	Clock        clockwork.Clock
	Grace        time.Duration
	Logger       *zap.Logger
}

type task struct {
	fn   func()
	done chan struct{}
}

// Router is the single-threaded event loop that owns all session store
// access. Each inbound event and each fired timer runs as one atomic step, so
// the store needs no locking. Timers are never trusted to cancel cleanly:
// every close callback re-checks round identity before acting.
type Router struct {
	store        *session.Store
	hub          Broadcaster
	polls        PollWriter
	participants ParticipantWriter
	chat         ChatWriter
	clock        clockwork.Clock
	grace        time.Duration
	logger       *zap.Logger

	tasks   chan task
	stopped chan struct{}
	ctx     context.Context
}

// NewRouter creates a router around the given store and broadcaster.
func NewRouter(cfg *Config) *Router {
	r := &Router{
		store:        cfg.Store,
		hub:          cfg.Hub,
		polls:        cfg.Polls,
		participants: cfg.Participants,
		chat:         cfg.Chat,
		clock:        cfg.Clock,
		grace:        cfg.Grace,
		logger:       cfg.Logger,
		tasks:        make(chan task, 64),
		stopped:      make(chan struct{}),
	}
	if r.clock == nil {
		r.clock = clockwork.NewRealClock()
	}
	if r.grace <= 0 {
		r.grace = DefaultGrace
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.polls == nil {
		r.polls = NopPollWriter{}
	}
	if r.participants == nil {
		r.participants = NopParticipantWriter{}
	}
	if r.chat == nil {
		r.chat = NopChatWriter{}
	}
	return r
}

// Run processes events until ctx is cancelled. It must be running before any
// Handle method is called.
func (r *Router) Run(ctx context.Context) {
	r.ctx = ctx
	defer close(r.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			t.fn()
			if t.done != nil {
				close(t.done)
			}
		}
	}
}

// do runs fn on the loop and waits for it, serializing transport goroutines
// behind the single-threaded step model.
func (r *Router) do(fn func()) {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case r.tasks <- t:
	case <-r.stopped:
		return
	}
	select {
	case <-t.done:
	case <-r.stopped:
	}
}

// enqueue posts fn without waiting. Used by timer goroutines, which must not
// block shutdown.
func (r *Router) enqueue(fn func()) {
	select {
	case r.tasks <- task{fn: fn}:
	case <-r.stopped:
	}
}

func roomName(pollID string) string {
	return "poll:" + pollID
}

// HandleJoin adds or refreshes the student, moves the connection into the
// poll room (or the waiting room when idle), replies privately with the full
// state snapshot, then broadcasts the updated roster.
func (r *Router) HandleJoin(socketID string, p JoinPayload) {
	r.do(func() {
		r.store.AddStudent(p.StudentID, socketID, p.Name)
		room := roomName(p.PollID)
		r.hub.JoinRoom(socketID, room)

		r.persistAsync("participant upsert", func(ctx context.Context) error {
			return r.participants.Upsert(ctx, p.PollID, p.StudentID, p.Name)
		})

		r.hub.SendToClient(socketID, EventPollState, StatePayload{
			CurrentPoll: r.store.CurrentPoll(),
			Students:    r.store.Students(),
		})
		r.hub.BroadcastToRoom(room, EventUpdateParticipants, ParticipantsPayload{
			Students: r.store.Students(),
		})
		r.logger.Info("student joined",
			zap.String("student_id", p.StudentID),
			zap.String("name", p.Name),
			zap.String("poll_id", p.PollID))
	})
}

// HandleSubmitAnswer records one answer. Rejections (no active round, unknown
// student, duplicate) go privately to the submitting connection and nothing is
// broadcast. On success the tally is rebroadcast, and when the whole roster
// has answered an auto-close is scheduled after the grace delay.
func (r *Router) HandleSubmitAnswer(socketID string, p SubmitAnswerPayload) {
	r.do(func() {
		if r.store.RoundState() != session.Active {
			r.hub.SendToClient(socketID, EventError, ErrorPayload{Message: "No active poll"})
			return
		}
		if !r.store.RecordAnswer(p.StudentID, p.OptionID) {
			r.hub.SendToClient(socketID, EventError, ErrorPayload{Message: "Already answered or not joined"})
			return
		}

		r.persistAsync("vote insert", func(ctx context.Context) error {
			return r.polls.InsertVote(ctx, p.PollID, p.StudentID, p.OptionID)
		})

		r.hub.BroadcastToRoom(roomName(p.PollID), EventUpdateResults, ResultsPayload{
			Results:  r.store.CurrentResults(),
			Students: r.store.Students(),
		})

		// Evaluated against the roster as it is right now; disconnects that
		// happened since the round started already shrank it.
		if r.store.AllAnswered() {
			poll := r.store.CurrentPoll()
			r.logger.Info("all students answered, closing early",
				zap.String("poll_id", poll.ID),
				zap.Int("roster", r.store.RosterSize()))
			r.scheduleClose(poll.ID, r.grace)
		}
	})
}

// HandleStartPoll starts a round: the store is reset for the new poll, the
// announcement goes out on the global channel so pre-join clients learn a
// round exists, and the duration timer is scheduled.
func (r *Router) HandleStartPoll(socketID string, p StartPollPayload) {
	r.do(func() {
		r.hub.JoinRoom(socketID, roomName(p.PollID))
		r.startRound(p, EventPollStarted)
	})
}

// HandleNextQuestion replaces the current round with a fresh question. Same
// lifecycle as HandleStartPoll; the teacher connection is already in the room.
func (r *Router) HandleNextQuestion(socketID string, p StartPollPayload) {
	r.do(func() {
		r.startRound(p, EventPollNewQuestion)
	})
}

func (r *Router) startRound(p StartPollPayload, event string) {
	poll := p.Poll
	now := r.clock.Now()
	if poll.CreatedAt == 0 {
		poll.CreatedAt = now.UnixMilli()
	}
	duration := time.Duration(poll.Duration) * time.Second
	timerEnds := now.Add(duration)

	r.store.StartRound(&poll, timerEnds)

	r.persistAsync("poll upsert", func(ctx context.Context) error {
		return r.polls.Upsert(ctx, &poll)
	})

	r.hub.BroadcastAll(event, PollStartedPayload{
		Poll:      *r.store.CurrentPoll(),
		TimerEnds: timerEnds.UnixMilli(),
	})
	r.logger.Info("poll started",
		zap.String("poll_id", poll.ID),
		zap.Int("duration_sec", poll.Duration),
		zap.String("event", event))

	r.scheduleClose(poll.ID, duration)
}

// HandleEndPoll is the teacher's manual close.
func (r *Router) HandleEndPoll(_ string, p EndPollPayload) {
	r.do(func() {
		r.closePoll(p.PollID, "manual")
	})
}

// HandleChat stamps the message with an id and server time, broadcasts it to
// the room and persists it fire-and-forget.
func (r *Router) HandleChat(_ string, p ChatSendPayload) {
	r.do(func() {
		msg := models.ChatMessage{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			UserName:  p.UserName,
			Text:      p.Text,
			Timestamp: r.clock.Now().UnixMilli(),
		}
		r.persistAsync("chat insert", func(ctx context.Context) error {
			return r.chat.Insert(ctx, p.PollID, msg)
		})
		r.hub.BroadcastToRoom(roomName(p.PollID), EventChatMessage, msg)
	})
}

// HandleKick notifies the target privately before removal propagates, removes
// it from the roster and broadcasts the updated roster. Later events from the
// kicked identity fail the roster existence check until it rejoins.
func (r *Router) HandleKick(_ string, p KickPayload) {
	r.do(func() {
		socketID, ok := r.store.SocketOf(p.StudentID)
		if !ok {
			return
		}
		r.persistAsync("participant kick", func(ctx context.Context) error {
			return r.participants.MarkKicked(ctx, p.StudentID)
		})

		r.hub.SendToClient(socketID, EventKicked, nil)
		r.store.RemoveStudent(p.StudentID)
		r.hub.BroadcastToRoom(roomName(p.PollID), EventUpdateParticipants, ParticipantsPayload{
			Students: r.store.Students(),
		})
		r.logger.Info("student kicked", zap.String("student_id", p.StudentID))
	})
}

// HandleDisconnect removes whichever roster entry owns the dropped socket
// (first match only) and broadcasts the roster to the current room. The
// student's answer, if any, leaves the tally with them.
func (r *Router) HandleDisconnect(socketID string) {
	r.do(func() {
		studentID, ok := r.store.RemoveBySocket(socketID)
		if !ok {
			return
		}
		if poll := r.store.CurrentPoll(); poll != nil {
			r.hub.BroadcastToRoom(roomName(poll.ID), EventUpdateParticipants, ParticipantsPayload{
				Students: r.store.Students(),
			})
		}
		r.logger.Info("student disconnected", zap.String("student_id", studentID))
	})
}

// scheduleClose arms a one-shot timer that posts a close for pollID. The
// timer is not relied on to cancel; the fired callback checks round identity
// and becomes a no-op when the round has moved on.
func (r *Router) scheduleClose(pollID string, delay time.Duration) {
	timer := r.clock.NewTimer(delay)
	go func() {
		select {
		case <-timer.Chan():
			r.enqueue(func() { r.closePoll(pollID, "timer") })
		case <-r.ctx.Done():
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
		}
	}()
}

// closePoll transitions Active -> Closed exactly once per round. All close
// paths (manual end, duration expiry, auto-close grace) funnel through here;
// whichever comes second loses the CloseRound guard and is ignored.
func (r *Router) closePoll(pollID, reason string) {
	if !r.store.CloseRound(pollID) {
		r.logger.Debug("stale close ignored",
			zap.String("poll_id", pollID),
			zap.String("reason", reason))
		return
	}
	r.persistAsync("poll close", func(ctx context.Context) error {
		return r.polls.MarkInactive(ctx, pollID)
	})
	r.hub.BroadcastToRoom(roomName(pollID), EventPollEnded, ResultsPayload{
		Results:  r.store.CurrentResults(),
		Students: r.store.Students(),
	})
	r.logger.Info("poll ended",
		zap.String("poll_id", pollID),
		zap.String("reason", reason))
}

// persistAsync runs a storage write off the loop. Failures are logged and
// swallowed; the realtime path never waits on, or reorders around, storage.
func (r *Router) persistAsync(op string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Warn("persistence write failed", zap.String("op", op), zap.Error(err))
		}
	}()
}
