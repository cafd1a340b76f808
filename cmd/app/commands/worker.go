package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/filecatalog/internal/app"
	"github.com/allisson/filecatalog/internal/config"
)

// RunWorker starts the standalone outbox dispatch worker.
// Useful when the API and the dispatcher are deployed separately. Blocks
// until receiving SIGINT/SIGTERM.
func RunWorker(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting outbox worker", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Make sure the search index exists before dispatching
	store, err := container.IndexStore()
	if err != nil {
		return fmt.Errorf("failed to initialize search store: %w", err)
	}
	if err := store.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure search index: %w", err)
	}

	// Get the outbox worker from container
	outboxUseCase, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox use case: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := outboxUseCase.Start(ctx); err != nil {
		return fmt.Errorf("outbox worker error: %w", err)
	}

	logger.Info("outbox worker stopped")
	return nil
}
