package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sujay149/intervue-task/internal/models"
)

func newTestPoll(id string) *models.Poll {
	return &models.Poll{
		ID:       id,
		Question: "Which planet is known as the Red Planet?",
		Options: []models.PollOption{
			{ID: "opt-1", Text: "Mars", IsCorrect: true},
			{ID: "opt-2", Text: "Venus"},
			{ID: "opt-3", Text: "Jupiter"},
		},
		Duration:  60,
		CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestRecordAnswerAdmissionControl(t *testing.T) {
	s := New()
	s.AddStudent("stu-a", "sock-1", "Alice")
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))

	require.True(t, s.RecordAnswer("stu-a", "opt-1"), "first answer should be admitted")
	assert.False(t, s.RecordAnswer("stu-a", "opt-2"), "second answer must be rejected, not overwritten")
	assert.False(t, s.RecordAnswer("stu-unknown", "opt-1"), "unknown student must be rejected")

	results := s.CurrentResults()
	assert.Equal(t, 1, results[0].Votes, "rejected resubmission must not move the vote")
	assert.Equal(t, 0, results[1].Votes)
}

func TestStartRoundResetsAnswers(t *testing.T) {
	s := New()
	s.AddStudent("stu-a", "sock-1", "Alice")
	s.AddStudent("stu-b", "sock-2", "Bob")
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	require.True(t, s.RecordAnswer("stu-a", "opt-1"))
	require.True(t, s.RecordAnswer("stu-b", "opt-2"))

	s.StartRound(newTestPoll("poll-2"), time.Now().Add(time.Minute))

	for _, opt := range s.CurrentResults() {
		assert.Zero(t, opt.Votes, "new round must start with zero votes for %s", opt.ID)
	}
	for _, st := range s.Students() {
		assert.False(t, st.HasAnswered, "answered flag must reset for %s", st.ID)
		assert.Empty(t, st.AnswerID)
	}
	assert.True(t, s.RecordAnswer("stu-a", "opt-3"), "students may answer again in the new round")
}

func TestReconnectKeepsAnswerWithinRound(t *testing.T) {
	s := New()
	s.AddStudent("stu-a", "sock-1", "Alice")
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	require.True(t, s.RecordAnswer("stu-a", "opt-1"))

	// Reconnect: same student id, new socket.
	s.AddStudent("stu-a", "sock-9", "Alice")

	sock, ok := s.SocketOf("stu-a")
	require.True(t, ok)
	assert.Equal(t, "sock-9", sock)
	assert.False(t, s.RecordAnswer("stu-a", "opt-2"), "reconnect must not reopen the answer gate")
	assert.Equal(t, 1, s.CurrentResults()[0].Votes)
}

func TestCurrentResultsDerivation(t *testing.T) {
	s := New()

	assert.Empty(t, s.CurrentResults(), "no active round means zero options")

	s.AddStudent("stu-a", "sock-1", "Alice")
	s.AddStudent("stu-b", "sock-2", "Bob")
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	require.True(t, s.RecordAnswer("stu-a", "opt-1"))
	require.True(t, s.RecordAnswer("stu-b", "opt-2"))

	results := s.CurrentResults()
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].Votes)
	assert.Equal(t, 1, results[1].Votes)
	assert.Equal(t, 0, results[2].Votes)
}

func TestVoteConservation(t *testing.T) {
	s := New()
	students := []string{"s1", "s2", "s3", "s4", "s5"}
	options := []string{"opt-1", "opt-2", "opt-3"}
	for _, id := range students {
		s.AddStudent(id, "sock-"+id, "Student "+id)
	}
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	for i, id := range students {
		require.True(t, s.RecordAnswer(id, options[i%len(options)]))
	}

	total := 0
	for _, opt := range s.CurrentResults() {
		total += opt.Votes
	}
	assert.Equal(t, len(students), total, "votes must sum to the answer set size")
}

func TestRemoveBySocketFirstMatchOnly(t *testing.T) {
	s := New()
	// Two entries on the same socket should not happen under correct
	// reconnect handling; a disconnect still removes only the first.
	s.AddStudent("stu-a", "sock-dup", "Alice")
	s.AddStudent("stu-b", "sock-dup", "Bob")

	id, ok := s.RemoveBySocket("sock-dup")
	require.True(t, ok)
	assert.Equal(t, "stu-a", id)
	assert.Equal(t, 1, s.RosterSize())

	_, ok = s.RemoveBySocket("sock-gone")
	assert.False(t, ok)
}

func TestRemoveStudentPurgesAnswer(t *testing.T) {
	s := New()
	s.AddStudent("stu-a", "sock-1", "Alice")
	s.AddStudent("stu-b", "sock-2", "Bob")
	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	require.True(t, s.RecordAnswer("stu-a", "opt-1"))

	s.RemoveStudent("stu-a")

	assert.Equal(t, 0, s.CurrentResults()[0].Votes, "removal purges the answer entry")
	assert.False(t, s.AllAnswered(), "remaining roster has not answered")
	require.True(t, s.RecordAnswer("stu-b", "opt-2"))
	assert.True(t, s.AllAnswered(), "all-answered is evaluated against the roster at call time")
}

func TestCloseRoundGuards(t *testing.T) {
	s := New()

	assert.Equal(t, Idle, s.RoundState())
	assert.False(t, s.CloseRound("poll-1"), "closing with no round is a stale no-op")

	s.StartRound(newTestPoll("poll-1"), time.Now().Add(time.Minute))
	assert.Equal(t, Active, s.RoundState())

	assert.False(t, s.CloseRound("poll-0"), "mismatched round identity is stale")
	assert.True(t, s.CloseRound("poll-1"))
	assert.Equal(t, Closed, s.RoundState())
	assert.False(t, s.CloseRound("poll-1"), "second close of the same round is stale")

	s.StartRound(newTestPoll("poll-2"), time.Now().Add(time.Minute))
	assert.Equal(t, Active, s.RoundState())
	assert.False(t, s.CloseRound("poll-1"), "old round's timer must not close the new round")
}

func TestStudentsStripSocketsAndKeepOrder(t *testing.T) {
	s := New()
	s.AddStudent("stu-b", "sock-2", "Bob")
	s.AddStudent("stu-a", "sock-1", "Alice")
	s.AddStudent("stu-c", "sock-3", "Cara")
	s.RemoveStudent("stu-a")
	s.AddStudent("stu-a", "sock-4", "Alice")

	students := s.Students()
	require.Len(t, students, 3)
	assert.Equal(t, []string{"stu-b", "stu-c", "stu-a"}, []string{students[0].ID, students[1].ID, students[2].ID})
	for _, st := range students {
		assert.Empty(t, st.SocketID, "connection handles must never leak to broadcast consumers")
	}
}
