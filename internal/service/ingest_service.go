package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlopezv/docsearch-ai/internal/chunker"
	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
)

// IngestService populates the vector index from the content source:
// fetch every page of the space, chunk its text, tag each chunk with page
// provenance, and upsert everything in one combined batch.
type IngestService struct {
	source   port.ContentSource
	index    port.VectorIndex
	splitter *chunker.Splitter
	baseURL  string
	spaceKey string
}

// NewIngestService creates the ingestion pipeline. baseURL and spaceKey
// are used to derive canonical page URLs.
func NewIngestService(source port.ContentSource, index port.VectorIndex, splitter *chunker.Splitter, baseURL, spaceKey string) *IngestService {
	return &IngestService{
		source:   source,
		index:    index,
		splitter: splitter,
		baseURL:  strings.TrimRight(baseURL, "/"),
		spaceKey: spaceKey,
	}
}

// Run executes one ingestion pass. A fetch yielding zero pages returns
// port.ErrNoContent without touching the index. All chunks from all pages
// go to the index in a single upsert, so re-ingesting a page replaces its
// previous chunks and ingestion stays idempotent per page.
func (s *IngestService) Run(ctx context.Context) (*domain.IngestResult, error) {
	pages, err := s.source.FetchAllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch space content: %w", err)
	}
	if len(pages) == 0 {
		return nil, port.ErrNoContent
	}

	var chunks []domain.Chunk
	for _, page := range pages {
		title := page.Title
		if title == "" {
			title = "Untitled Page"
		}
		version := page.Version
		if version == "" {
			version = "unknown"
		}
		pageURL := s.pageURL(page.ID)

		for _, piece := range s.splitter.Split(page.Text) {
			chunks = append(chunks, domain.Chunk{
				Content:   piece,
				SourceURL: pageURL,
				Title:     title,
				Version:   version,
			})
		}
	}

	slog.Info("space content chunked", "space", s.spaceKey, "pages", len(pages), "chunks", len(chunks))

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("update vector index: %w", err)
	}

	return &domain.IngestResult{
		PagesProcessed: len(pages),
		ChunksWritten:  len(chunks),
	}, nil
}

// pageURL derives a page's canonical URL from the source base URL, the
// space key, and the page id.
func (s *IngestService) pageURL(pageID string) string {
	return fmt.Sprintf("%s/spaces/%s/pages/%s", s.baseURL, s.spaceKey, pageID)
}
