package models

// ChatMessage is one classroom chat entry. Append-only, scoped to the current
// room. Timestamp is unix milliseconds.
type ChatMessage struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
