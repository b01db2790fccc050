// Package backend selects and constructs the configured bill store.
package backend

import (
	"fmt"

	"billed/internal/config"
	"billed/internal/log"
	"billed/internal/store"
	"billed/internal/store/memory"
	"billed/internal/store/sqlite"
)

// CleanupFunc releases a backend's resources.
type CleanupFunc func() error

// Result pairs a backend with its optional cleanup function.
type Result struct {
	Store   store.BillStore
	Cleanup CleanupFunc
}

// Open creates the bill store selected by the configuration.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.Info("Initialized memory bill store")
		return &Result{Store: memory.New()}, nil
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		logger.Info("Initialized sqlite bill store", "path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
