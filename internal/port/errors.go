package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrNoContent            = errors.New("no content found in space")
	ErrNoDocuments          = errors.New("no documents retrieved")
	ErrEmptyQuestion        = errors.New("question is empty")
	ErrInvalidRating        = errors.New("rating must be an integer between 1 and 5")
	ErrNoPendingInteraction = errors.New("no interaction awaiting feedback")
	ErrSessionNotFound      = errors.New("session not found")
)
