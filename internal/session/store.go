// Package session holds the in-memory state of the live classroom: the
// current poll, the student roster, and the answer set. It is pure data with
// mutation operations and performs no I/O.
//
// A Store is not safe for concurrent use. The event router owns the only
// instance and serializes all access through its run loop, so the store needs
// no locking of its own.
package session

import (
	"time"

	"github.com/Sujay149/intervue-task/internal/models"
)

// RoundState is the lifecycle of the current poll as seen by the server.
type RoundState int

const (
	// Idle means no poll has been started yet.
	Idle RoundState = iota
	// Active means a poll is running and its timer is pending.
	Active
	// Closed means the last poll ended but is still the "current" one until
	// the next start replaces it.
	Closed
)

func (s RoundState) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "idle"
	}
}

// Store is the single source of truth for the session. One instance per
// server process, injected into the router rather than held as a global so
// tests can run independent instances.
type Store struct {
	currentPoll *models.Poll
	timerEnds   time.Time

	students map[string]*models.Student
	order    []string          // roster insertion order
	answers  map[string]string // studentID -> optionID
}

// New returns an empty store: no poll, no students, no answers.
func New() *Store {
	return &Store{
		students: make(map[string]*models.Student),
		answers:  make(map[string]string),
	}
}

// StartRound replaces the current poll, clears the answer set and resets
// every roster member's answered flag. Starting a round cannot fail; any
// previous round is implicitly closed by being overwritten.
func (s *Store) StartRound(poll *models.Poll, timerEnds time.Time) {
	p := *poll
	p.IsActive = true
	s.currentPoll = &p
	s.timerEnds = timerEnds
	s.answers = make(map[string]string)
	for _, st := range s.students {
		st.HasAnswered = false
		st.AnswerID = ""
	}
}

// CloseRound transitions Active -> Closed for the given poll id. It returns
// false when the id does not match the current poll or the poll is already
// closed, which is how stale timer callbacks are detected and ignored.
func (s *Store) CloseRound(pollID string) bool {
	if s.currentPoll == nil || s.currentPoll.ID != pollID || !s.currentPoll.IsActive {
		return false
	}
	s.currentPoll.IsActive = false
	return true
}

// AddStudent inserts or refreshes the roster entry keyed by student id.
// On reconnect the socket id and name are updated but the answered flag is
// left alone, so an answer given earlier in the same round still counts.
func (s *Store) AddStudent(id, socketID, name string) {
	if st, ok := s.students[id]; ok {
		st.SocketID = socketID
		st.Name = name
		return
	}
	s.students[id] = &models.Student{ID: id, SocketID: socketID, Name: name}
	s.order = append(s.order, id)
}

// RemoveStudent deletes the roster entry and any answer for that id.
// No-op when the id is unknown.
func (s *Store) RemoveStudent(id string) {
	if _, ok := s.students[id]; !ok {
		return
	}
	delete(s.students, id)
	delete(s.answers, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// RemoveBySocket removes the first roster entry (in insertion order) whose
// connection handle matches, and returns the removed student id. Transport
// disconnects only carry the socket id, not the student id.
func (s *Store) RemoveBySocket(socketID string) (string, bool) {
	for _, id := range s.order {
		if s.students[id].SocketID == socketID {
			s.RemoveStudent(id)
			return id, true
		}
	}
	return "", false
}

// SocketOf returns the connection handle of a roster member.
func (s *Store) SocketOf(studentID string) (string, bool) {
	st, ok := s.students[studentID]
	if !ok {
		return "", false
	}
	return st.SocketID, true
}

// RecordAnswer is the sole admission-control gate against double voting.
// It succeeds only when the student is on the roster and has not answered in
// the current round; a second attempt is rejected, not overwritten.
func (s *Store) RecordAnswer(studentID, optionID string) bool {
	st, ok := s.students[studentID]
	if !ok || st.HasAnswered {
		return false
	}
	st.HasAnswered = true
	st.AnswerID = optionID
	s.answers[studentID] = optionID
	return true
}

// CurrentResults derives the tally for the current poll by counting answer
// set entries per option. Votes are never cached; roster sizes are small and
// this runs once per vote plus once on round end. Returns an empty slice when
// no poll is current.
func (s *Store) CurrentResults() []models.PollOption {
	if s.currentPoll == nil {
		return []models.PollOption{}
	}
	results := make([]models.PollOption, len(s.currentPoll.Options))
	for i, opt := range s.currentPoll.Options {
		opt.Votes = 0
		results[i] = opt
	}
	for _, optionID := range s.answers {
		for i := range results {
			if results[i].ID == optionID {
				results[i].Votes++
				break
			}
		}
	}
	return results
}

// Students returns the roster in insertion order with connection handles
// stripped, suitable for broadcasting.
func (s *Store) Students() []models.Student {
	out := make([]models.Student, 0, len(s.order))
	for _, id := range s.order {
		st := *s.students[id]
		st.SocketID = ""
		out = append(out, st)
	}
	return out
}

// CurrentPoll returns a copy of the current poll, or nil when idle.
func (s *Store) CurrentPoll() *models.Poll {
	if s.currentPoll == nil {
		return nil
	}
	p := *s.currentPoll
	return &p
}

// RoundState reports Idle, Active or Closed for the current poll.
func (s *Store) RoundState() RoundState {
	switch {
	case s.currentPoll == nil:
		return Idle
	case s.currentPoll.IsActive:
		return Active
	default:
		return Closed
	}
}

// TimerEnds is the authoritative deadline of the current round.
func (s *Store) TimerEnds() time.Time {
	return s.timerEnds
}

// RosterSize is the number of students currently on the roster.
func (s *Store) RosterSize() int {
	return len(s.students)
}

// AllAnswered reports whether a non-empty roster has fully answered. It is
// evaluated against the roster at call time, so disconnects that shrink the
// roster are taken into account.
func (s *Store) AllAnswered() bool {
	return len(s.students) > 0 && len(s.answers) == len(s.students)
}
