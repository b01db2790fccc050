// Package cli holds the initialization steps shared by the binaries
// under cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"billed/internal/backend"
	"billed/internal/config"
	"billed/internal/log"
)

// SetupLogger builds the process logger and installs it as the slog
// default so library code logs through the same handler.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Missing files
// are fine; production injects real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits on validation
// failure, printing every problem at once.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the configured bill store backend or exits.
func OpenStore(cfg *config.Config, logger *log.Logger) *backend.Result {
	res, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open bill store",
			"backend", cfg.StoreBackend, log.FieldError, err.Error())
		os.Exit(1)
	}
	return res
}

// GracefulShutdown cancels the returned context on SIGINT/SIGTERM, runs
// cleanup, and closes done when everything finished or timeout passed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence completed.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
