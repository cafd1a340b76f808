package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUsecase "github.com/allisson/filecatalog/internal/outbox/usecase"
)

// RunDrainOutbox processes pending outbox events until the backlog is empty.
// Supports both text/JSON output formats.
func RunDrainOutbox(
	ctx context.Context,
	outboxUseCase outboxUsecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	logger.Info("draining outbox")

	processed, err := outboxUseCase.Drain(ctx)
	if err != nil {
		return fmt.Errorf("failed to drain outbox: %w", err)
	}

	// Output result based on format
	if format == "json" {
		result := map[string]any{
			"processed": processed,
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Processed %d outbox event(s)\n", processed)
	}

	logger.Info("outbox drained", slog.Int("processed", processed))
	return nil
}
