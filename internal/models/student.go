package models

// Student is a roster entry. The ID is chosen by the client and stable across
// reconnects; SocketID is the transient connection handle and changes on every
// reconnect. SocketID is server-internal routing data and never serialized.
type Student struct {
	ID          string `json:"id"`
	SocketID    string `json:"-"`
	Name        string `json:"name"`
	HasAnswered bool   `json:"hasAnswered"`
	AnswerID    string `json:"answerId,omitempty"`
}
