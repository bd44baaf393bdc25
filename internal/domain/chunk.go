package domain

// Chunk is a bounded fragment of page text tagged with its provenance.
// Chunks are created during ingestion and superseded as a set when their
// source page is re-ingested; they are never mutated in place.
type Chunk struct {
	Content   string `json:"content" db:"content"`
	SourceURL string `json:"url"     db:"url"`
	Title     string `json:"title"   db:"title"`
	Version   string `json:"version" db:"version"`
}

// HasProvenance reports whether the chunk can be traced back to a source
// page. Chunks without provenance are unusable at query time.
func (c Chunk) HasProvenance() bool {
	return c.SourceURL != "" || c.Title != ""
}

// ChunkMetadata is the provenance of a stored chunk without its content,
// used to enumerate the pages known to the index.
type ChunkMetadata struct {
	SourceURL string `json:"url"     db:"url"`
	Title     string `json:"title"   db:"title"`
	Version   string `json:"version" db:"version"`
}

// RetrievedChunk is a chunk returned by similarity search. Similarity is
// nil when the underlying search did not report a score.
type RetrievedChunk struct {
	Chunk
	Similarity *float64 `json:"similarity,omitempty"`
}
