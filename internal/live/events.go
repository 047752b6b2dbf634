package live

import "github.com/Sujay149/intervue-task/internal/models"

// Inbound socket events.
const (
	EventStudentJoin  = "student:join"
	EventSubmitAnswer = "student:submit_answer"
	EventStartPoll    = "teacher:start_poll"
	EventEndPoll      = "teacher:end_poll"
	EventNextQuestion = "teacher:next_question"
	EventChatSend     = "chat:send"
	EventKickStudent  = "teacher:kick_student"
)

// Outbound socket events.
const (
	EventPollState          = "poll:state"
	EventPollStarted        = "poll:started"
	EventPollNewQuestion    = "poll:new_question"
	EventUpdateResults      = "poll:update_results"
	EventPollEnded          = "poll:ended"
	EventUpdateParticipants = "system:update_participants"
	EventChatMessage        = "chat:message"
	EventKicked             = "student:kicked"
	EventError              = "error"
)

// JoinPayload is sent by a student entering the classroom. PollID is the
// current poll id, or "waiting" when none is running yet.
type JoinPayload struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	PollID    string `json:"pollId"`
}

// SubmitAnswerPayload is a student's single answer attempt.
type SubmitAnswerPayload struct {
	StudentID string `json:"studentId"`
	PollID    string `json:"pollId"`
	OptionID  string `json:"optionId"`
}

// StartPollPayload carries the teacher's new poll. Used for both
// teacher:start_poll and teacher:next_question.
type StartPollPayload struct {
	PollID string      `json:"pollId"`
	Poll   models.Poll `json:"poll"`
}

// EndPollPayload is the teacher's manual close.
type EndPollPayload struct {
	PollID string `json:"pollId"`
}

// ChatSendPayload is an inbound chat message.
type ChatSendPayload struct {
	PollID   string `json:"pollId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

// KickPayload removes a student from the session.
type KickPayload struct {
	PollID    string `json:"pollId"`
	StudentID string `json:"studentId"`
}

// StatePayload is the private snapshot replied to a join. CurrentPoll is nil
// when the session is idle; clients must recover elapsed time from
// CurrentPoll.CreatedAt rather than wait for the next broadcast.
type StatePayload struct {
	CurrentPoll *models.Poll     `json:"currentPoll"`
	Students    []models.Student `json:"students"`
}

// PollStartedPayload announces a new round globally. TimerEnds is the
// authoritative deadline in unix milliseconds; clients derive their own
// countdown from it at the moment of receipt.
type PollStartedPayload struct {
	Poll      models.Poll `json:"poll"`
	TimerEnds int64       `json:"timerEnds"`
}

// ResultsPayload carries the derived tally plus the roster. Sent on every
// accepted answer and, finally, on round end.
type ResultsPayload struct {
	Results  []models.PollOption `json:"results"`
	Students []models.Student    `json:"students"`
}

// ParticipantsPayload is the roster broadcast after join/kick/disconnect.
type ParticipantsPayload struct {
	Students []models.Student `json:"students"`
}

// ErrorPayload is a private notice to the offending connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}
