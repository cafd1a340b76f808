package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/metrics"
	"github.com/allisson/filecatalog/internal/outbox/domain"
)

// outboxUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type outboxUseCaseWithMetrics struct {
	next     UseCase
	metrics  metrics.BusinessMetrics
	pipeline metrics.PipelineMetrics
}

// NewOutboxUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewOutboxUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics, p metrics.PipelineMetrics) UseCase {
	return &outboxUseCaseWithMetrics{
		next:     useCase,
		metrics:  m,
		pipeline: p,
	}
}

// Enqueue records metrics for outbox event creation.
func (o *outboxUseCaseWithMetrics) Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error {
	start := time.Now()
	err := o.next.Enqueue(ctx, eventType, fileID)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "outbox", "enqueue", status)
	o.metrics.RecordDuration(ctx, "outbox", "enqueue", time.Since(start), status)

	return err
}

// Start delegates to the wrapped dispatcher. Per-pass metrics are recorded by
// ProcessEvents.
func (o *outboxUseCaseWithMetrics) Start(ctx context.Context) error {
	return o.next.Start(ctx)
}

// Drain records metrics for drain runs.
func (o *outboxUseCaseWithMetrics) Drain(ctx context.Context) (int, error) {
	start := time.Now()
	processed, err := o.next.Drain(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "outbox", "drain", status)
	o.metrics.RecordDuration(ctx, "outbox", "drain", time.Since(start), status)

	return processed, err
}

// ProcessEvents records metrics for one dispatch pass, including the number
// of events processed.
func (o *outboxUseCaseWithMetrics) ProcessEvents(ctx context.Context) (int, error) {
	start := time.Now()
	processed, err := o.next.ProcessEvents(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "outbox", "process_events", status)
	o.metrics.RecordDuration(ctx, "outbox", "process_events", time.Since(start), status)
	o.pipeline.RecordOutboxProcessed(ctx, processed)

	return processed, err
}

// ListDeadLetters records metrics for dead letter listing.
func (o *outboxUseCaseWithMetrics) ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error) {
	start := time.Now()
	deadLetters, err := o.next.ListDeadLetters(ctx, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "outbox", "list_dead_letters", status)
	o.metrics.RecordDuration(ctx, "outbox", "list_dead_letters", time.Since(start), status)

	return deadLetters, err
}
