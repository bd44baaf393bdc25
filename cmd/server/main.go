package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mlopezv/docsearch-ai/internal/adapter/ai"
	"github.com/mlopezv/docsearch-ai/internal/adapter/confluence"
	"github.com/mlopezv/docsearch-ai/internal/adapter/store"
	"github.com/mlopezv/docsearch-ai/internal/chunker"
	"github.com/mlopezv/docsearch-ai/internal/handler"
	"github.com/mlopezv/docsearch-ai/internal/scheduler"
	"github.com/mlopezv/docsearch-ai/internal/service"
	"github.com/mlopezv/docsearch-ai/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting DocSearch AI",
		"port", cfg.Port,
		"ollama_embed", cfg.OllamaEmbedURL,
		"ollama_chat", cfg.OllamaChatURL,
		"confluence_space", cfg.ConfluenceSpace,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.EmbeddingDimension)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	// ── Adapters ─────────────────────────────────────────────────────────
	ollamaAI := ai.NewOllamaProvider(
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		},
	)

	vectorIndex := store.NewVectorStore(pgStore, ollamaAI, cfg.RetrievalTopK)

	confluenceSource := confluence.NewClient(
		cfg.ConfluenceURL, cfg.ConfluenceUsername, cfg.ConfluenceAPIToken, cfg.ConfluenceSpace,
	)

	// ── Services ─────────────────────────────────────────────────────────
	ingestService := service.NewIngestService(
		confluenceSource, vectorIndex, chunker.New(), cfg.ConfluenceURL, cfg.ConfluenceSpace,
	)
	answerService := service.NewAnswerService(vectorIndex, ollamaAI, cfg.ScoreThreshold, cfg.Temperature)
	feedbackLog := service.NewFeedbackLog(cfg.FeedbackFile)
	chatService := service.NewChatService(answerService, feedbackLog)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
	}))

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"app":    cfg.AppName,
			"model":  ollamaAI.ModelName(),
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	ingestHandler := handler.NewIngestHandler(ingestService)
	ingestHandler.Register(api)

	chatHandler := handler.NewChatHandler(chatService, vectorIndex)
	chatHandler.Register(api)

	// ── Scheduled re-ingestion ───────────────────────────────────────────
	if cfg.SyncCron != "" {
		sched, err := scheduler.New(cfg.SyncCron, ingestService)
		if err != nil {
			slog.Error("invalid SYNC_CRON", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		slog.Info("scheduled sync enabled", "cron", cfg.SyncCron)
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
