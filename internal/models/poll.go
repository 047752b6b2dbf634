package models

// PollOption is one selectable answer of a poll.
// Votes is derived from the answer set on every read, never stored as input.
type PollOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Votes     int    `json:"votes"`
}

// Poll is the active question broadcast to the classroom.
// CreatedAt is unix milliseconds so browser clients can diff against Date.now().
type Poll struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Options   []PollOption `json:"options"`
	Duration  int          `json:"duration"` // seconds
	CreatedAt int64        `json:"createdAt"`
	IsActive  bool         `json:"isActive"`
}

// OptionByID returns the option with the given id, or nil.
func (p *Poll) OptionByID(id string) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}
