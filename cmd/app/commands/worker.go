package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JSONbored/claudepro-directory-sub000/internal/app"
	"github.com/JSONbored/claudepro-directory-sub000/internal/config"
)

// RunWorker starts the background queue worker with graceful shutdown
// support. The worker sweeps every registered queue on a fixed interval
// until receiving SIGINT/SIGTERM.
func RunWorker(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting worker",
		slog.String("version", version),
		slog.Duration("interval", cfg.WorkerInterval),
	)

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get worker from container (this initializes all dependencies)
	worker, err := container.Worker()
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
