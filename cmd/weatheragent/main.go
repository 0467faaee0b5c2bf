package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/Puranjay-del-Mishra/weatheragent/internal/api/http"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/config"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/scheduler"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/store"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/upsert"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// The forwarder secrets are a deployment precondition; a partial
	// deploy keeps the draft surface running and fails per request.
	if m := cfg.Upsert.Missing(); m != "" {
		log.Printf("ERROR: %s is not set; subscription submits will fail until it is configured", m)
	}

	// Shared HTTP client for the outbound upsert call.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Draft store with configured retention, restored from the last
	// snapshot if one exists.
	drafts := store.NewMemoryStore(cfg.DraftMaxAge, cfg.DraftsPath)
	drafts.LoadSnapshot(cfg.DefaultTimezone, time.Now())

	forwarder := upsert.NewClient(httpClient, cfg.Upsert)

	// Janitor that periodically prunes expired drafts.
	janitor := scheduler.New(drafts, cfg.JanitorInterval)
	if err := janitor.Start(); err != nil {
		log.Fatalf("failed to start janitor: %v", err)
	}
	defer janitor.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weatheragent",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatheragent",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, drafts, forwarder, cfg.DefaultTimezone)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
