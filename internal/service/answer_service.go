package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
)

// AnswerService drives the retrieval-to-answer pipeline for a single
// question: retrieve, group by version, build the prompt, and start a
// streamed generation.
type AnswerService struct {
	index       port.VectorIndex
	ai          port.AIProvider
	threshold   float64
	temperature float64
}

// NewAnswerService creates the answer pipeline. threshold is the minimum
// similarity score a chunk needs to be retrieved (0 disables filtering);
// temperature tunes generation randomness.
func NewAnswerService(index port.VectorIndex, ai port.AIProvider, threshold, temperature float64) *AnswerService {
	return &AnswerService{
		index:       index,
		ai:          ai,
		threshold:   threshold,
		temperature: temperature,
	}
}

// Retrieve queries the index for the question with the configured
// similarity threshold.
func (s *AnswerService) Retrieve(ctx context.Context, question string) []domain.RetrievedChunk {
	return s.index.Query(ctx, question, s.threshold)
}

// Answer retrieves context for the question and starts a streamed
// generation. When nothing clears the threshold it returns
// port.ErrNoDocuments without invoking the model; retrying with
// conversation history is the caller's decision. The returned groups
// always reflect the retrieval that produced the stream.
func (s *AnswerService) Answer(ctx context.Context, question string) (<-chan port.Fragment, map[int][]domain.RetrievedChunk, error) {
	retrieved := s.Retrieve(ctx, question)
	if len(retrieved) == 0 {
		return nil, nil, port.ErrNoDocuments
	}

	groups := GroupByVersion(retrieved)
	prompt := BuildPrompt(retrieved, question)

	stream, err := s.ai.ChatStream(ctx, prompt, s.temperature)
	if err != nil {
		slog.Error("generation failed to start", "model", s.ai.ModelName(), "error", err)
		return nil, nil, fmt.Errorf("start generation: %w", err)
	}

	slog.Info("answer stream started", "model", s.ai.ModelName(), "chunks", len(retrieved), "groups", len(groups))
	return stream, groups, nil
}
