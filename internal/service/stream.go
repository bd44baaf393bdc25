package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mlopezv/docsearch-ai/internal/port"
)

// FallbackMessage is the only failure text an end user ever sees: empty
// retrieval, a mid-stream refusal, and upstream service failures all
// collapse to this one sentence.
const FallbackMessage = "I'm sorry, but I couldn't find that information in our database. Is there anything else I can assist you with?"

// refusalSentinel is the literal phrase the model emits when the context
// cannot answer the question. Matched case-insensitively.
const refusalSentinel = "no response"

// SentinelScanner detects the refusal sentinel in an accumulating token
// stream. It keeps a rolling tail of len(sentinel)-1 characters so a
// sentinel split across two fragments is still caught.
type SentinelScanner struct {
	tail string
}

// Scan reports whether the sentinel has appeared once fragment is
// appended to everything scanned so far.
func (s *SentinelScanner) Scan(fragment string) bool {
	window := s.tail + strings.ToLower(fragment)
	if strings.Contains(window, refusalSentinel) {
		return true
	}
	if keep := len(refusalSentinel) - 1; len(window) > keep {
		window = window[len(window)-keep:]
	}
	s.tail = window
	return false
}

// CollectAnswer drains the token stream, forwarding each fragment to
// onFragment (nil allowed). When the refusal sentinel appears it stops
// pulling immediately, no further tokens are consumed from the
// generation service, and the fallback message replaces everything
// streamed so far. A stream ending in an error fragment is logged and
// likewise collapses to the fallback, never to truncated partial text.
// Returns the final answer and whether the stream completed cleanly.
func CollectAnswer(ctx context.Context, stream <-chan port.Fragment, onFragment func(string)) (string, bool) {
	var scanner SentinelScanner
	var accumulated strings.Builder

	for {
		select {
		case <-ctx.Done():
			return FallbackMessage, false
		case fragment, ok := <-stream:
			if !ok {
				return accumulated.String(), true
			}
			if fragment.Err != nil {
				slog.Error("generation stream failed", "error", fragment.Err)
				return FallbackMessage, false
			}
			if scanner.Scan(fragment.Text) {
				return FallbackMessage, false
			}
			accumulated.WriteString(fragment.Text)
			if onFragment != nil {
				onFragment(fragment.Text)
			}
		}
	}
}
