package domain

import "time"

// ConversationTurn is one completed question/answer exchange. The answer
// pipeline only ever consumes the most recent two turns.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Interaction is a delivered answer awaiting user feedback. Rating stays
// nil until feedback arrives; an interaction abandoned without a rating is
// persisted with the skipped sentinel instead.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Rating    *int      `json:"rating,omitempty"`
}
