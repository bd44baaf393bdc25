package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
	"github.com/mlopezv/docsearch-ai/internal/service"
)

// fakeIndex serves canned retrieval results and metadata.
type fakeIndex struct {
	results []domain.RetrievedChunk
	metas   []domain.ChunkMetadata
	queries int
}

func (f *fakeIndex) Upsert(_ context.Context, _ []domain.Chunk) error { return nil }

func (f *fakeIndex) Query(_ context.Context, _ string, _ float64) []domain.RetrievedChunk {
	f.queries++
	return f.results
}

func (f *fakeIndex) ListAll(_ context.Context) []domain.ChunkMetadata { return f.metas }

// fakeAI streams canned fragments.
type fakeAI struct {
	fragments []string
}

func (f *fakeAI) ModelName() string { return "fake" }

func (f *fakeAI) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (f *fakeAI) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

func (f *fakeAI) ChatStream(_ context.Context, _ string, _ float64) (<-chan port.Fragment, error) {
	ch := make(chan port.Fragment, len(f.fragments))
	for _, fr := range f.fragments {
		ch <- port.Fragment{Text: fr}
	}
	close(ch)
	return ch, nil
}

func chatApp(t *testing.T, index *fakeIndex, ai *fakeAI) (*fiber.App, *service.ChatService) {
	t.Helper()
	answers := service.NewAnswerService(index, ai, 0.0, 0.5)
	feedback := service.NewFeedbackLog(filepath.Join(t.TempDir(), "feedback.csv"))
	chat := service.NewChatService(answers, feedback)

	app := fiber.New()
	NewChatHandler(chat, index).Register(app.Group("/api/v1"))
	return app, chat
}

func startSession(t *testing.T, chat *service.ChatService) string {
	t.Helper()
	return chat.StartSession().ID
}

func TestAskBlankQuestionRejectedBeforeStreaming(t *testing.T) {
	index := &fakeIndex{}
	app, chat := chatApp(t, index, &fakeAI{})
	id := startSession(t, chat)

	for _, question := range []string{"", "   "} {
		req := httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/ask",
			strings.NewReader(`{"question": "`+question+`"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		resp.Body.Close()

		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "question is required", payload["error"])
		// the response is plain JSON, never a started event stream
		assert.NotContains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	}
	assert.Zero(t, index.queries)
}

func TestAskUnknownSessionReturnsNotFound(t *testing.T) {
	app, _ := chatApp(t, &fakeIndex{}, &fakeAI{})

	req := httptest.NewRequest("POST", "/api/v1/sessions/nope/ask",
		strings.NewReader(`{"question": "hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAskStreamsTokensAndDoneEvent(t *testing.T) {
	similarity := 0.9
	index := &fakeIndex{results: []domain.RetrievedChunk{{
		Chunk:      domain.Chunk{Content: "install steps", SourceURL: "u1", Title: "Guide", Version: "2"},
		Similarity: &similarity,
	}}}
	app, chat := chatApp(t, index, &fakeAI{fragments: []string{"The ", "answer."}})
	id := startSession(t, chat)

	req := httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/ask",
		strings.NewReader(`{"question": "how do I install?"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	events := string(body)
	assert.Contains(t, events, "event: token\ndata: The \n")
	assert.Contains(t, events, "event: done\n")
	assert.Contains(t, events, "The answer.")
}

func TestFeedbackInvalidRatingWarns(t *testing.T) {
	index := &fakeIndex{}
	app, chat := chatApp(t, index, &fakeAI{})
	id := startSession(t, chat)

	req := httptest.NewRequest("POST", "/api/v1/sessions/"+id+"/feedback",
		strings.NewReader(`{"rating": 0}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "Please provide a valid rating.", payload["warning"])
}

func TestPagesDeduplicatedByURL(t *testing.T) {
	index := &fakeIndex{metas: []domain.ChunkMetadata{
		{SourceURL: "u1", Title: "Guide", Version: "1"},
		{SourceURL: "u1", Title: "Guide", Version: "1"},
		{SourceURL: "u2", Title: "", Version: "2"},
	}}
	app, _ := chatApp(t, index, &fakeAI{})

	req := httptest.NewRequest("GET", "/api/v1/pages", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload struct {
		Pages []map[string]string `json:"pages"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 2, payload.Count)
	require.Len(t, payload.Pages, 2)
	assert.Equal(t, "Guide", payload.Pages[0]["title"])
	assert.Equal(t, "Document 3", payload.Pages[1]["title"])
}
