package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
)

// historyDepth is how many prior turns the retry reformulation may use.
const historyDepth = 2

// RatingSkipped is written to the feedback log when an interaction is
// abandoned without a rating.
const RatingSkipped = "N/A"

// Session is the per-user conversation context: recent history, the
// interaction awaiting feedback, nothing else. Created at session start,
// cleared at session end.
type Session struct {
	ID string

	mu      sync.Mutex
	history []domain.ConversationTurn
	pending *domain.Interaction
}

// History returns a copy of the session's recent turns.
func (s *Session) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) remember(question, answer string) {
	s.history = append(s.history, domain.ConversationTurn{Question: question, Answer: answer})
	if len(s.history) > historyDepth {
		s.history = s.history[len(s.history)-historyDepth:]
	}
}

// AskResult is a delivered answer with its version-grouped context. Groups
// belong to whichever retrieval attempt found documents; they are nil when
// every attempt failed and the answer is the fallback message.
type AskResult struct {
	Answer string
	Groups map[int][]domain.RetrievedChunk
}

// ChatService orchestrates sessions over the answer pipeline: the
// retry-with-history policy, sentinel-aware stream consumption, pending
// feedback lifecycle, and rating validation.
type ChatService struct {
	answers  *AnswerService
	feedback *FeedbackLog

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewChatService creates the session orchestrator.
func NewChatService(answers *AnswerService, feedback *FeedbackLog) *ChatService {
	return &ChatService{
		answers:  answers,
		feedback: feedback,
		sessions: make(map[string]*Session),
	}
}

// StartSession creates a new empty session.
func (c *ChatService) StartSession() *Session {
	sess := &Session{ID: uuid.NewString()}
	c.mu.Lock()
	c.sessions[sess.ID] = sess
	c.mu.Unlock()
	slog.Info("session started", "session_id", sess.ID)
	return sess
}

// Session looks up a session by id.
func (c *ChatService) Session(id string) (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[id]
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	return sess, nil
}

// EndSession clears and removes a session. An unrated pending interaction
// is flushed to the feedback log as skipped.
func (c *ChatService) EndSession(id string) {
	c.mu.Lock()
	sess, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	if sess.pending != nil {
		c.feedback.Save(*sess.pending, RatingSkipped)
		sess.pending = nil
	}
	sess.history = nil
	sess.mu.Unlock()
	slog.Info("session ended", "session_id", id)
}

// Ask runs the full question pipeline for a session. An empty question is
// a no-op: nothing is retrieved or submitted. If the first retrieval finds
// nothing and the session has history, the pipeline retries once with a
// reformulated question embedding the last turns; after that, any failure
// becomes the fixed fallback message. Fragments of a successful generation
// are forwarded to onFragment as they arrive.
func (c *ChatService) Ask(ctx context.Context, sess *Session, question string, onFragment func(string)) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, port.ErrEmptyQuestion
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// a new question abandons any interaction still awaiting feedback
	if sess.pending != nil {
		c.feedback.Save(*sess.pending, RatingSkipped)
		sess.pending = nil
	}

	stream, groups, err := c.answers.Answer(ctx, question)
	if errors.Is(err, port.ErrNoDocuments) && len(sess.history) > 0 {
		slog.Info("retrying retrieval with history", "session_id", sess.ID, "turns", len(sess.history))
		stream, groups, err = c.answers.Answer(ctx, retryQuestion(sess.history, question))
	}

	var answer string
	if err != nil {
		if !errors.Is(err, port.ErrNoDocuments) {
			slog.Error("answer pipeline failed", "session_id", sess.ID, "error", err)
		}
		answer = FallbackMessage
		groups = nil
	} else {
		answer, _ = CollectAnswer(ctx, stream, onFragment)
	}

	sess.remember(question, answer)
	sess.pending = &domain.Interaction{
		Timestamp: time.Now(),
		Question:  question,
		Answer:    answer,
	}

	return &AskResult{Answer: answer, Groups: groups}, nil
}

// SubmitFeedback persists the rating for the session's pending
// interaction. Zero means "not provided" and is rejected along with
// anything outside 1..5; rejected ratings are never persisted.
func (c *ChatService) SubmitFeedback(sess *Session, rating int) error {
	if rating < 1 || rating > 5 {
		return port.ErrInvalidRating
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending == nil {
		return port.ErrNoPendingInteraction
	}

	interaction := *sess.pending
	interaction.Rating = &rating
	c.feedback.Save(interaction, fmt.Sprintf("%d", rating))
	sess.pending = nil
	return nil
}

// retryQuestion reformulates a question by embedding the most recent turns
// as plain text. Kept as a single tunable: the flat string format follows
// the original behavior and has not been verified against structured
// alternatives.
func retryQuestion(history []domain.ConversationTurn, question string) string {
	turns := history
	if len(turns) > historyDepth {
		turns = turns[len(turns)-historyDepth:]
	}

	parts := make([]string, len(turns))
	for i, t := range turns {
		parts[i] = fmt.Sprintf("Q: %s A: %s", t.Question, t.Answer)
	}
	return fmt.Sprintf("Previous context: %s. New question: '%s'.", strings.Join(parts, " "), question)
}
