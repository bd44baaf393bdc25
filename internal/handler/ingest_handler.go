package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/mlopezv/docsearch-ai/internal/port"
	"github.com/mlopezv/docsearch-ai/internal/service"
)

// IngestHandler exposes the HTTP trigger for the ingestion pipeline.
type IngestHandler struct {
	ingest *service.IngestService
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

// Register sets up ingestion routes.
func (h *IngestHandler) Register(router fiber.Router) {
	router.Get("/confluence-space", h.CreateVectorstore)
}

// CreateVectorstore runs the ingestion pipeline synchronously and returns
// a JSON status object. The caller here is an operator, so failures are
// surfaced structurally rather than hidden behind the user fallback.
func (h *IngestHandler) CreateVectorstore(c fiber.Ctx) error {
	result, err := h.ingest.Run(c.Context())
	if errors.Is(err, port.ErrNoContent) {
		return c.JSON(fiber.Map{"message": "No content found in space"})
	}
	if err != nil {
		slog.Error("ingestion run failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"message":         "Vectorstore created for space",
		"pages_processed": result.PagesProcessed,
		"chunks_written":  result.ChunksWritten,
	})
}
