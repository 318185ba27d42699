// Package cli holds the startup plumbing shared by cmd/fintrack and
// cmd/fintrack-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Bootstrap loads the environment, builds the configured logger, and
// validates configuration. Exits the process when the configuration is
// unusable.
func Bootstrap() (*config.Config, *log.Logger) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite opens the SQLite gateway or exits the process.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite gateway", "error", err, "db_path", dbPath)
		os.Exit(1)
	}
	return repo
}
