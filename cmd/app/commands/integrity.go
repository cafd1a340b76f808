package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/filecatalog/internal/integrity"
)

// RunVerifyIntegrity cross-checks catalog rows against the full-text index
// and reports missing and orphaned entries. Supports both text/JSON output
// formats.
func RunVerifyIntegrity(
	ctx context.Context,
	integrityService integrity.Checker,
	logger *slog.Logger,
	out io.Writer,
	format string,
) error {
	logger.Info("verifying index integrity")

	report, err := integrityService.Verify(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify integrity: %w", err)
	}

	// Output result based on format
	if format == "json" {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else if report.Clean() {
		fmt.Fprintln(out, "Index is consistent with the catalog")
	} else {
		fmt.Fprintf(out, "Found %d file(s) missing from the index and %d orphaned index entr(ies)\n",
			len(report.MissingFileIDs), len(report.OrphanIndexIDs))
		for _, id := range report.MissingFileIDs {
			fmt.Fprintf(out, "missing: %s\n", id)
		}
		for _, id := range report.OrphanIndexIDs {
			fmt.Fprintf(out, "orphan: %s\n", id)
		}
	}

	logger.Info("integrity verification completed",
		slog.Int("missing", len(report.MissingFileIDs)),
		slog.Int("orphans", len(report.OrphanIndexIDs)),
	)

	return nil
}

// RunRepairIndex rebuilds missing index entries and drops orphans. With all
// set, every document is reindexed from the catalog. Supports both text/JSON
// output formats.
func RunRepairIndex(
	ctx context.Context,
	integrityService integrity.Checker,
	logger *slog.Logger,
	out io.Writer,
	all bool,
	format string,
) error {
	logger.Info("repairing index", slog.Bool("all", all))

	reindexed, err := integrityService.Repair(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to repair index: %w", err)
	}

	// Output result based on format
	if format == "json" {
		result := map[string]any{
			"reindexed_documents": reindexed,
			"all":                 all,
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Reindexed %d document(s)\n", reindexed)
	}

	logger.Info("repair completed", slog.Int("reindexed", reindexed))
	return nil
}
