// Package pollclient reconciles server pushes into a local client view of the
// classroom. It is the state layer an embedding client (CLI, bot, test
// harness) renders from: it merges snapshots and broadcasts, keeps a locally
// ticking countdown derived from the server deadline, and enforces answer
// lockout and the terminal kicked state.
package pollclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Sujay149/intervue-task/internal/live"
	"github.com/Sujay149/intervue-task/internal/models"
)

// Reconciler merges server events into local view state. Safe for concurrent
// use; the countdown goroutine and the transport reader both touch it.
type Reconciler struct {
	mu    sync.Mutex
	clock clockwork.Clock

	poll      *models.Poll
	students  []models.Student
	chatLog   []models.ChatMessage
	remaining int
	gen       int // countdown generation; bumping it retires the old ticker

	hasAnswered bool
	selected    string
	kicked      bool
	lastError   string
}

// New creates a reconciler. A nil clock means the real clock.
func New(clock clockwork.Clock) *Reconciler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reconciler{clock: clock}
}

// Apply merges one server push. After a kicked notification every further
// event is ignored; the session is a dead end until the client is recreated.
func (r *Reconciler) Apply(event string, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.kicked {
		return nil
	}

	switch event {
	case live.EventPollState:
		var p live.StatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.students = p.Students
		if p.CurrentPoll != nil {
			r.poll = p.CurrentPoll
			// Elapsed-time recovery: the snapshot carries no deadline, so
			// derive remaining from the poll's creation time.
			elapsed := int(r.clock.Now().UnixMilli()-p.CurrentPoll.CreatedAt) / 1000
			r.startCountdownLocked(clamp(p.CurrentPoll.Duration - elapsed))
		}

	case live.EventPollStarted, live.EventPollNewQuestion:
		var p live.PollStartedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		poll := p.Poll
		r.poll = &poll
		// A new round is the only thing that clears the local lockout.
		r.hasAnswered = false
		r.selected = ""
		// Remaining time comes from the server deadline at the moment of
		// receipt; after this the countdown ticks locally and no further
		// server message is needed.
		remaining := int(p.TimerEnds-r.clock.Now().UnixMilli()) / 1000
		r.startCountdownLocked(clamp(remaining))

	case live.EventUpdateResults:
		var p live.ResultsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		if r.poll != nil {
			r.poll.Options = p.Results
		}
		r.students = p.Students

	case live.EventPollEnded:
		var p live.ResultsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		if r.poll != nil {
			r.poll.Options = p.Results
			r.poll.IsActive = false
		}
		r.students = p.Students
		r.remaining = 0
		r.gen++ // stop the countdown

	case live.EventUpdateParticipants:
		var p live.ParticipantsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.students = p.Students

	case live.EventChatMessage:
		var msg models.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.chatLog = append(r.chatLog, msg)

	case live.EventKicked:
		r.kicked = true
		r.remaining = 0
		r.gen++

	case live.EventError:
		var p live.ErrorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		r.lastError = p.Message
	}
	return nil
}

// MarkAnswered records the local optimistic lockout after the client submits.
func (r *Reconciler) MarkAnswered(optionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasAnswered = true
	r.selected = optionID
}

// startCountdownLocked begins a fresh local countdown. Callers hold r.mu.
func (r *Reconciler) startCountdownLocked(remaining int) {
	r.gen++
	gen := r.gen
	r.remaining = remaining
	if remaining <= 0 {
		return
	}
	go func() {
		ticker := r.clock.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.Chan() {
			r.mu.Lock()
			if r.gen != gen || r.remaining <= 0 {
				r.mu.Unlock()
				return
			}
			r.remaining--
			done := r.remaining == 0
			r.mu.Unlock()
			if done {
				return
			}
		}
	}()
}

// Poll returns a copy of the current poll, or nil.
func (r *Reconciler) Poll() *models.Poll {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poll == nil {
		return nil
	}
	p := *r.poll
	return &p
}

// Students returns the latest roster.
func (r *Reconciler) Students() []models.Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Student(nil), r.students...)
}

// Chat returns the accumulated chat log.
func (r *Reconciler) Chat() []models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChatMessage(nil), r.chatLog...)
}

// Remaining is the locally ticking number of seconds left in the round.
func (r *Reconciler) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// HasAnswered reports the local answer lockout.
func (r *Reconciler) HasAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasAnswered
}

// Selected is the locally chosen option id, empty until MarkAnswered.
func (r *Reconciler) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Kicked reports the terminal removed state.
func (r *Reconciler) Kicked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kicked
}

// LastError is the most recent private error notice, if any.
func (r *Reconciler) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

func clamp(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds
}
