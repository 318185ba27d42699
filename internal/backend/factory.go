package backend

import (
	"fmt"
	"log/slog"

	"fintrack/internal/backend/memory"
	"fintrack/internal/storage"
)

// CleanupFunc releases gateway resources.
type CleanupFunc func() error

// Result contains the gateway instance and an optional cleanup function.
type Result struct {
	Gateway   Gateway
	Directory Directory
	Cleanup   CleanupFunc
}

// Factory creates gateways based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create builds the gateway selected by config.
func (f *Factory) Create(config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite gateway: %w", err)
		}
		f.logger.Info("Initialized SQLite gateway", "db_path", config.SQLiteDBPath)
		return &Result{Gateway: repo, Directory: repo, Cleanup: repo.Close}, nil

	case MemoryBackend:
		gw := memory.NewGateway()
		f.logger.Info("Initialized memory gateway")
		return &Result{Gateway: gw, Directory: gw, Cleanup: nil}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
