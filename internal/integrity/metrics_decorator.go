package integrity

import (
	"context"
	"time"

	"github.com/allisson/filecatalog/internal/metrics"
)

// Checker defines the interface for index integrity checks and repairs.
type Checker interface {
	Verify(ctx context.Context) (Report, error)
	Repair(ctx context.Context, reindexAll bool) (int, error)
}

// serviceWithMetrics decorates Checker with metrics instrumentation.
type serviceWithMetrics struct {
	next     Checker
	metrics  metrics.BusinessMetrics
	pipeline metrics.PipelineMetrics
}

// NewServiceWithMetrics wraps a Checker with metrics recording.
func NewServiceWithMetrics(service Checker, m metrics.BusinessMetrics, p metrics.PipelineMetrics) Checker {
	return &serviceWithMetrics{
		next:     service,
		metrics:  m,
		pipeline: p,
	}
}

// Verify records metrics for integrity verification runs.
func (s *serviceWithMetrics) Verify(ctx context.Context) (Report, error) {
	start := time.Now()
	report, err := s.next.Verify(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "integrity", "verify", status)
	s.metrics.RecordDuration(ctx, "integrity", "verify", time.Since(start), status)

	return report, err
}

// Repair records metrics for repair runs, including the number of documents
// rewritten.
func (s *serviceWithMetrics) Repair(ctx context.Context, reindexAll bool) (int, error) {
	start := time.Now()
	repaired, err := s.next.Repair(ctx, reindexAll)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "integrity", "repair", status)
	s.metrics.RecordDuration(ctx, "integrity", "repair", time.Since(start), status)
	s.pipeline.RecordReindexedDocuments(ctx, repaired)

	return repaired, err
}
