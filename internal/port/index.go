package port

import (
	"context"

	"github.com/mlopezv/docsearch-ai/internal/domain"
)

// VectorIndex is the contract for the persistent similarity-search store.
//
// Query and ListAll degrade gracefully: any failure against the underlying
// embedding or storage service is logged at the implementation and
// surfaced as an empty result, so callers cannot distinguish "no results"
// from "service degraded".
type VectorIndex interface {
	// Upsert replaces all stored chunks for every source URL present in
	// the batch, then inserts the batch. Removal of stale chunks is
	// best-effort and never blocks the insert.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Query returns chunks whose similarity to text meets or exceeds
	// scoreThreshold, ranked by descending similarity. A threshold of 0
	// effectively disables filtering and returns the top-K matches.
	Query(ctx context.Context, text string, scoreThreshold float64) []domain.RetrievedChunk

	// ListAll returns the metadata of every stored chunk. An empty index
	// yields an empty slice, never an error.
	ListAll(ctx context.Context) []domain.ChunkMetadata
}
