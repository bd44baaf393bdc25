package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
)

// VectorStore implements port.VectorIndex on Postgres with pgvector,
// embedding chunk content through the configured AI provider.
type VectorStore struct {
	store *PostgresStore
	ai    port.AIProvider
	topK  int
}

// NewVectorStore creates a vector index backed by the given Postgres store.
// topK caps the number of rows a single query returns.
func NewVectorStore(store *PostgresStore, ai port.AIProvider, topK int) *VectorStore {
	return &VectorStore{store: store, ai: ai, topK: topK}
}

// Upsert deletes any stored chunks whose source URL appears in the batch,
// then embeds and inserts the batch. Deletion of stale entries is
// best-effort: a failed delete is logged and insertion proceeds, so stale
// cleanup can never block fresh content.
func (v *VectorStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	urls := distinctSourceURLs(chunks)
	if _, err := v.store.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE url = ANY($1)`, pq.Array(urls),
	); err != nil {
		slog.Warn("could not remove stale chunks", "urls", len(urls), "error", err)
	} else {
		slog.Info("removed stale chunks", "urls", len(urls))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := v.ai.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (content, url, title, version, embedding)
		 VALUES ($1, $2, $3, $4, $5::vector)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			c.Content, c.SourceURL, c.Title, c.Version, vectorToString(vectors[i]),
		); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("vector index updated", "chunks", len(chunks), "pages", len(urls))
	return nil
}

// Query embeds text and returns stored chunks whose cosine similarity
// meets the threshold, ranked by descending similarity. Any failure is
// logged and surfaced as an empty result.
func (v *VectorStore) Query(ctx context.Context, text string, scoreThreshold float64) []domain.RetrievedChunk {
	queryVector, err := v.ai.Embed(ctx, text)
	if err != nil {
		slog.Error("embed query failed", "error", err)
		return nil
	}

	query := `SELECT content, url, title, version,
	                 1 - (embedding <=> $1::vector) AS similarity
	          FROM chunks
	          WHERE 1 - (embedding <=> $1::vector) >= $2
	          ORDER BY embedding <=> $1::vector
	          LIMIT $3`

	rows, err := v.store.db.QueryContext(ctx, query, vectorToString(queryVector), scoreThreshold, v.topK)
	if err != nil {
		slog.Error("similarity search failed", "error", err)
		return nil
	}
	defer rows.Close()

	var results []domain.RetrievedChunk
	for rows.Next() {
		var rc domain.RetrievedChunk
		var similarity float64
		if err := rows.Scan(&rc.Content, &rc.SourceURL, &rc.Title, &rc.Version, &similarity); err != nil {
			slog.Error("scan retrieved chunk failed", "error", err)
			return nil
		}
		rc.Similarity = &similarity
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		slog.Error("similarity search failed", "error", err)
		return nil
	}
	return results
}

// ListAll returns the metadata of every stored chunk. An empty index
// yields an empty slice.
func (v *VectorStore) ListAll(ctx context.Context) []domain.ChunkMetadata {
	rows, err := v.store.db.QueryContext(ctx,
		`SELECT url, title, version FROM chunks ORDER BY id`)
	if err != nil {
		slog.Error("list chunks failed", "error", err)
		return nil
	}
	defer rows.Close()

	var metas []domain.ChunkMetadata
	for rows.Next() {
		var m domain.ChunkMetadata
		if err := rows.Scan(&m.SourceURL, &m.Title, &m.Version); err != nil {
			slog.Error("scan chunk metadata failed", "error", err)
			return nil
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("list chunks failed", "error", err)
		return nil
	}
	return metas
}

// distinctSourceURLs returns the unique source URLs in a batch, preserving
// first-seen order.
func distinctSourceURLs(chunks []domain.Chunk) []string {
	seen := make(map[string]bool, len(chunks))
	var urls []string
	for _, c := range chunks {
		if c.SourceURL == "" || seen[c.SourceURL] {
			continue
		}
		seen[c.SourceURL] = true
		urls = append(urls, c.SourceURL)
	}
	return urls
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
