package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics defines the interface for recording write and indexing
// pipeline metrics: import outcomes, transaction busy retries, outbox
// throughput, and reindexing volume.
type PipelineMetrics interface {
	// RecordImportOutcomes records per-row import outcomes from one run.
	RecordImportOutcomes(ctx context.Context, imported, skipped, updated int)

	// RecordBusyRetries records transaction retries caused by lock contention.
	RecordBusyRetries(ctx context.Context, operation string, retries int)

	// RecordOutboxProcessed records outbox events dispatched in one pass.
	RecordOutboxProcessed(ctx context.Context, processed int)

	// RecordDispatchAttempts records failed outbox dispatch attempts.
	RecordDispatchAttempts(ctx context.Context, attempts int)

	// RecordDeadLettered records outbox events moved to the dead letter store.
	RecordDeadLettered(ctx context.Context, count int)

	// RecordReindexedDocuments records documents rewritten by a repair.
	RecordReindexedDocuments(ctx context.Context, count int)
}

// pipelineMetrics implements PipelineMetrics using OpenTelemetry metrics.
type pipelineMetrics struct {
	importCounter     metric.Int64Counter
	retryCounter      metric.Int64Counter
	outboxCounter     metric.Int64Counter
	attemptCounter    metric.Int64Counter
	deadLetterCounter metric.Int64Counter
	reindexCounter    metric.Int64Counter
}

// NewPipelineMetrics creates a new PipelineMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names.
func NewPipelineMetrics(meterProvider metric.MeterProvider, namespace string) (PipelineMetrics, error) {
	meter := meterProvider.Meter(namespace)

	importCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_import_rows_total", namespace),
		metric.WithDescription("Total number of import rows by outcome"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create import counter: %w", err)
	}

	retryCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_tx_busy_retries_total", namespace),
		metric.WithDescription("Total number of transaction retries caused by lock contention"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry counter: %w", err)
	}

	outboxCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_processed_total", namespace),
		metric.WithDescription("Total number of outbox events dispatched"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox counter: %w", err)
	}

	attemptCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_dispatch_attempts_total", namespace),
		metric.WithDescription("Total number of failed outbox dispatch attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt counter: %w", err)
	}

	deadLetterCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_dead_lettered_total", namespace),
		metric.WithDescription("Total number of outbox events moved to the dead letter store"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter counter: %w", err)
	}

	reindexCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_reindexed_documents_total", namespace),
		metric.WithDescription("Total number of documents rewritten by repairs"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reindex counter: %w", err)
	}

	return &pipelineMetrics{
		importCounter:     importCounter,
		retryCounter:      retryCounter,
		outboxCounter:     outboxCounter,
		attemptCounter:    attemptCounter,
		deadLetterCounter: deadLetterCounter,
		reindexCounter:    reindexCounter,
	}, nil
}

// RecordImportOutcomes increments the import row counter per outcome label.
func (p *pipelineMetrics) RecordImportOutcomes(ctx context.Context, imported, skipped, updated int) {
	outcomes := []struct {
		outcome string
		count   int
	}{
		{"imported", imported},
		{"skipped", skipped},
		{"updated", updated},
	}
	for _, o := range outcomes {
		if o.count == 0 {
			continue
		}
		p.importCounter.Add(ctx, int64(o.count),
			metric.WithAttributes(attribute.String("outcome", o.outcome)),
		)
	}
}

// RecordBusyRetries increments the retry counter with an operation label.
func (p *pipelineMetrics) RecordBusyRetries(ctx context.Context, operation string, retries int) {
	if retries == 0 {
		return
	}
	p.retryCounter.Add(ctx, int64(retries),
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

// RecordOutboxProcessed increments the outbox dispatch counter.
func (p *pipelineMetrics) RecordOutboxProcessed(ctx context.Context, processed int) {
	if processed == 0 {
		return
	}
	p.outboxCounter.Add(ctx, int64(processed))
}

// RecordDispatchAttempts increments the failed dispatch attempt counter.
func (p *pipelineMetrics) RecordDispatchAttempts(ctx context.Context, attempts int) {
	if attempts == 0 {
		return
	}
	p.attemptCounter.Add(ctx, int64(attempts))
}

// RecordDeadLettered increments the dead letter counter.
func (p *pipelineMetrics) RecordDeadLettered(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	p.deadLetterCounter.Add(ctx, int64(count))
}

// RecordReindexedDocuments increments the reindex counter.
func (p *pipelineMetrics) RecordReindexedDocuments(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	p.reindexCounter.Add(ctx, int64(count))
}

// NoOpPipelineMetrics is a no-op implementation of PipelineMetrics for when metrics are disabled.
type NoOpPipelineMetrics struct{}

// NewNoOpPipelineMetrics creates a no-op PipelineMetrics implementation.
func NewNoOpPipelineMetrics() PipelineMetrics {
	return &NoOpPipelineMetrics{}
}

// RecordImportOutcomes does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordImportOutcomes(ctx context.Context, imported, skipped, updated int) {
	// No-op
}

// RecordBusyRetries does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordBusyRetries(ctx context.Context, operation string, retries int) {
	// No-op
}

// RecordOutboxProcessed does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordOutboxProcessed(ctx context.Context, processed int) {
	// No-op
}

// RecordDispatchAttempts does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordDispatchAttempts(ctx context.Context, attempts int) {
	// No-op
}

// RecordDeadLettered does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordDeadLettered(ctx context.Context, count int) {
	// No-op
}

// RecordReindexedDocuments does nothing when metrics are disabled.
func (n *NoOpPipelineMetrics) RecordReindexedDocuments(ctx context.Context, count int) {
	// No-op
}
