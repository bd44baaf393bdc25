package port

import "context"

// Fragment is one increment of streamed generation output. Err is set
// instead of Text on the final element when the stream ended abnormally,
// so consumers can tell a failure from normal completion.
type Fragment struct {
	Text string
	Err  error
}

// AIProvider abstracts the embedding and generation backend.
// Implementations can target Ollama, OpenAI, or any compatible API.
type AIProvider interface {
	// ModelName returns the identifier of the chat model being used.
	ModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ChatStream submits a prompt and streams the response incrementally
	// via channel. The channel is closed when generation finishes; a
	// mid-stream failure is delivered as a trailing Fragment with Err
	// set. The consumer may stop pulling at any point.
	ChatStream(ctx context.Context, prompt string, temperature float64) (<-chan Fragment, error)
}
