package importer

import (
	"context"
	"time"

	"github.com/allisson/filecatalog/internal/metrics"
)

// Importer defines the interface for batch import runs.
type Importer interface {
	Import(ctx context.Context, items []Item, opts Options) (Result, error)
}

// useCaseWithMetrics decorates Importer with metrics instrumentation.
type useCaseWithMetrics struct {
	next     Importer
	metrics  metrics.BusinessMetrics
	pipeline metrics.PipelineMetrics
}

// NewUseCaseWithMetrics wraps an Importer with metrics recording.
func NewUseCaseWithMetrics(useCase Importer, m metrics.BusinessMetrics, p metrics.PipelineMetrics) Importer {
	return &useCaseWithMetrics{
		next:     useCase,
		metrics:  m,
		pipeline: p,
	}
}

// Import records metrics for batch import runs, including per-row outcomes
// and transaction busy retries.
func (u *useCaseWithMetrics) Import(ctx context.Context, items []Item, opts Options) (Result, error) {
	start := time.Now()
	result, err := u.next.Import(ctx, items, opts)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "import", "import", status)
	u.metrics.RecordDuration(ctx, "import", "import", time.Since(start), status)
	u.pipeline.RecordImportOutcomes(ctx, result.Imported, result.Skipped, result.Updated)
	u.pipeline.RecordBusyRetries(ctx, "import", result.BusyRetries)

	return result, err
}
