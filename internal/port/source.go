package port

import (
	"context"

	"github.com/mlopezv/docsearch-ai/internal/domain"
)

// ContentSource abstracts the system the corpus is ingested from.
type ContentSource interface {
	// FetchAllPages returns every page in the configured space. Auth and
	// network failures propagate as errors and abort the ingestion run.
	FetchAllPages(ctx context.Context) ([]domain.Page, error)
}
