package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
	"github.com/mlopezv/docsearch-ai/internal/service"
)

// askTimeout bounds one retrieval + generation round trip.
const askTimeout = 2 * time.Minute

// ChatHandler exposes the interactive surface: sessions, streamed answers,
// the known-pages listing, and feedback capture.
type ChatHandler struct {
	chat     *service.ChatService
	index    port.VectorIndex
	validate *validator.Validate
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *service.ChatService, index port.VectorIndex) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		index:    index,
		validate: validator.New(),
	}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/sessions", h.StartSession)
	router.Delete("/sessions/:id", h.EndSession)
	router.Post("/sessions/:id/ask", h.Ask)
	router.Post("/sessions/:id/feedback", h.Feedback)
	router.Get("/pages", h.Pages)
}

// StartSession creates a fresh conversation session.
func (h *ChatHandler) StartSession(c fiber.Ctx) error {
	sess := h.chat.StartSession()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session_id": sess.ID})
}

// EndSession clears a session; a pending unrated interaction is flushed as skipped.
func (h *ChatHandler) EndSession(c fiber.Ctx) error {
	h.chat.EndSession(c.Params("id"))
	return c.JSON(fiber.Map{"ok": true})
}

type askRequest struct {
	Question string `json:"question" validate:"required"`
}

// Ask answers a question over Server-Sent Events: one "token" event per
// generated fragment, then a final "done" event carrying the definitive
// answer and its version groups. When the refusal sentinel is detected
// mid-stream the "done" answer is the fallback message and the client
// must discard the streamed fragments in favor of it.
func (h *ChatHandler) Ask(c fiber.Ctx) error {
	sess, err := h.chat.Session(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var body askRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(body); err != nil || strings.TrimSpace(body.Question) == "" {
		// an empty question is never submitted to the pipeline
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	question := body.Question
	return c.SendStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()

		result, err := h.chat.Ask(ctx, sess, question, func(fragment string) {
			writeEvent(w, "token", fragment)
		})
		if err != nil {
			writeEvent(w, "error", "answer unavailable")
			return
		}

		payload, _ := json.Marshal(fiber.Map{
			"answer": result.Answer,
			"groups": groupsPayload(result.Groups),
		})
		writeEvent(w, "done", string(payload))
	})
}

type feedbackRequest struct {
	Rating int `json:"rating"`
}

// Feedback captures a 1-5 star rating for the session's last answer.
// A zero or out-of-range rating is rejected with a user-facing warning
// and nothing is persisted.
func (h *ChatHandler) Feedback(c fiber.Ctx) error {
	sess, err := h.chat.Session(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	var body feedbackRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	switch err := h.chat.SubmitFeedback(sess, body.Rating); {
	case errors.Is(err, port.ErrInvalidRating):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"warning": "Please provide a valid rating."})
	case errors.Is(err, port.ErrNoPendingInteraction):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no answer awaiting feedback"})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Thank you for your feedback!"})
}

// Pages lists the source pages known to the index, deduplicated by URL.
func (h *ChatHandler) Pages(c fiber.Ctx) error {
	metas := h.index.ListAll(c.Context())

	seen := make(map[string]bool)
	pages := make([]fiber.Map, 0, len(metas))
	for i, m := range metas {
		if m.SourceURL == "" || seen[m.SourceURL] {
			continue
		}
		seen[m.SourceURL] = true

		title := m.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}
		pages = append(pages, fiber.Map{"title": title, "url": m.SourceURL})
	}

	return c.JSON(fiber.Map{"pages": pages, "count": len(pages)})
}

// groupsPayload shapes version groups for JSON: {"1": [...], "2": [...]}.
func groupsPayload(groups map[int][]domain.RetrievedChunk) map[string][]domain.RetrievedChunk {
	out := make(map[string][]domain.RetrievedChunk, len(groups))
	for key, chunks := range groups {
		out[fmt.Sprintf("%d", key)] = chunks
	}
	return out
}

// writeEvent emits one Server-Sent Event and flushes it to the client.
func writeEvent(w *bufio.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
	w.Flush()
}
