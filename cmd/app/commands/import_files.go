package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/allisson/filecatalog/internal/importer"
)

// RunImportFiles imports a batch of files from a JSON document containing an
// array of import items. Supports both text/JSON output formats.
//
// Requirements: Database must be migrated and the search store reachable.
func RunImportFiles(
	ctx context.Context,
	importUseCase importer.Importer,
	logger *slog.Logger,
	out io.Writer,
	path string,
	batchSize int,
	skipSearch bool,
	format string,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var items []importer.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("import file contains no items")
	}

	logger.Info("importing files",
		slog.String("path", path),
		slog.Int("items", len(items)),
		slog.Int("batch_size", batchSize),
	)

	result, err := importUseCase.Import(ctx, items, importer.Options{
		BatchSize:    batchSize,
		UpsertSearch: !skipSearch,
	})
	if err != nil {
		return fmt.Errorf("failed to import files: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Imported %d file(s), updated %d, skipped %d\n",
			result.Imported, result.Updated, result.Skipped)
		if result.BusyRetries > 0 {
			fmt.Fprintf(out, "Transactions retried after contention: %d\n", result.BusyRetries)
		}
	}

	logger.Info("import completed",
		slog.Int("imported", result.Imported),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("busy_retries", result.BusyRetries),
	)

	return nil
}
