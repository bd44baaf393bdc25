package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mlopezv/docsearch-ai/internal/port"
	"github.com/mlopezv/docsearch-ai/internal/service"
)

// syncTimeout bounds one scheduled ingestion run.
const syncTimeout = 10 * time.Minute

// Scheduler re-ingests the space on a cron schedule so the index tracks
// the source without operator intervention.
type Scheduler struct {
	cron   *cron.Cron
	ingest *service.IngestService
}

// New creates a scheduler firing the ingestion pipeline on the given cron
// expression.
func New(spec string, ingest *service.IngestService) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), ingest: ingest}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler; an in-flight run finishes on its own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	result, err := s.ingest.Run(ctx)
	switch {
	case errors.Is(err, port.ErrNoContent):
		slog.Warn("scheduled sync found no content in space")
	case err != nil:
		slog.Error("scheduled sync failed", "error", err)
	default:
		slog.Info("scheduled sync complete", "pages", result.PagesProcessed, "chunks", result.ChunksWritten)
	}
}
