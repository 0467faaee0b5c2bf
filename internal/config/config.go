package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Puranjay-del-Mishra/weatheragent/internal/store"
	"github.com/Puranjay-del-Mishra/weatheragent/internal/upsert"
)

type AppConfig struct {
	// Upsert holds the three forwarder secrets. Their absence is not
	// fatal here: the draft-editing surface stays usable and the
	// subscribe handler reports the missing variable per request.
	Upsert upsert.Config

	// DefaultTimezone seeds drafts created without a detected zone.
	DefaultTimezone string

	// HTTPTimeout bounds outbound upsert calls.
	HTTPTimeout time.Duration

	// Draft retention.
	DraftMaxAge     time.Duration // drafts idle longer than this are pruned
	JanitorInterval time.Duration // how often the prune job runs

	// DraftsPath is the snapshot file for best-effort draft
	// persistence; empty disables it.
	DraftsPath string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Upsert = upsert.Config{
		BaseURL:      os.Getenv("UPSERT_BASE_URL"),
		AdminSecret:  os.Getenv("ADMIN_SECRET"),
		ServiceToken: os.Getenv("SERVICE_TOKEN"),
	}

	cfg.DefaultTimezone = getenvDefault("DEFAULT_TZ", "Europe/London")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Draft retention: default 30 days, pruned hourly.
	maxAgeStr := getenvDefault("DRAFT_MAX_AGE", "720h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DRAFT_MAX_AGE: %w", err)
	}
	cfg.DraftMaxAge = maxAge

	janitorStr := getenvDefault("JANITOR_INTERVAL", "1h")
	janitor, err := time.ParseDuration(janitorStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JANITOR_INTERVAL: %w", err)
	}
	cfg.JanitorInterval = janitor

	cfg.DraftsPath = getenvDefault("DRAFTS_PATH", store.SnapshotFile)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
