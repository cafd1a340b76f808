package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/clock"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	"github.com/allisson/filecatalog/internal/metrics"
	"github.com/allisson/filecatalog/internal/outbox/domain"
)

// Config holds outbox pipeline configuration.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	AutoRepair   bool
}

// OutboxUseCase dispatches pending outbox events to the search index. The
// background worker and the on-demand drain share ProcessEvents as their
// core routine.
type OutboxUseCase struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxEventRepository
	fileReader FileReader
	confirmer  FileConfirmer
	contents   ContentProvider
	indexer    Indexer
	repairer   Repairer
	clock      clock.Clock
	pipeline   metrics.PipelineMetrics
	logger     *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase. A nil clock defaults to the
// system clock; nil pipeline metrics default to the no-op implementation.
// The pipeline handle lives on the base use case because per-row failure and
// dead-letter outcomes are not visible to the decorator.
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	fileReader FileReader,
	confirmer FileConfirmer,
	contents ContentProvider,
	indexer Indexer,
	repairer Repairer,
	clk clock.Clock,
	pipeline metrics.PipelineMetrics,
	logger *slog.Logger,
) *OutboxUseCase {
	if clk == nil {
		clk = clock.System{}
	}
	if pipeline == nil {
		pipeline = metrics.NewNoOpPipelineMetrics()
	}
	return &OutboxUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		fileReader: fileReader,
		confirmer:  confirmer,
		contents:   contents,
		indexer:    indexer,
		repairer:   repairer,
		clock:      clk,
		pipeline:   pipeline,
		logger:     logger,
	}
}

// Enqueue records a deferred indexing intent. Runs in the transaction carried
// by ctx so the intent commits atomically with the triggering mutation.
func (uc *OutboxUseCase) Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error {
	event, err := domain.NewOutboxEvent(eventType, fileID)
	if err != nil {
		return apperrors.Wrap(err, "failed to build outbox event")
	}
	return uc.outboxRepo.Create(ctx, event)
}

// Start runs the polling worker loop until the context is canceled. The
// ticker interval is the only backoff between retries of a failing row; the
// attempts budget, not elapsed time, is the circuit breaker.
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting outbox dispatcher",
		slog.Duration("poll_interval", uc.config.PollInterval),
		slog.Int("batch_size", uc.config.BatchSize),
		slog.Int("max_attempts", uc.config.MaxAttempts),
	)

	ticker := time.NewTicker(uc.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping outbox dispatcher")
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.ProcessEvents(ctx); err != nil {
				uc.logger.Error("outbox dispatch pass failed", slog.Any("error", err))
			}
		}
	}
}

// Drain processes pending events until a pass finds none. Used by operator
// actions that need the backlog flushed synchronously.
func (uc *OutboxUseCase) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		processed, err := uc.ProcessEvents(ctx)
		total += processed
		if err != nil {
			return total, err
		}
		if processed == 0 {
			return total, nil
		}
	}
}

// ProcessEvents runs one dispatch pass: fetch up to BatchSize oldest pending
// rows and dispatch each. A failing row never interrupts the others; only a
// corruption failure that survives repair aborts the pass.
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) (int, error) {
	processed := 0

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		uc.logger.Info("dispatching outbox events", slog.Int("count", len(events)))

		for _, event := range events {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := uc.dispatchWithRepair(ctx, event); err != nil {
				if apperrors.Is(err, apperrors.ErrIndexCorrupted) {
					// Repair already ran once for this row. A second
					// corruption failure needs manual intervention.
					return apperrors.Wrap(err, "search index corrupted after repair")
				}

				if err := uc.recordFailure(ctx, event, err); err != nil {
					return err
				}
				continue
			}

			event.MarkProcessed(uc.clock.Now())
			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
			processed++
		}

		return nil
	})

	return processed, err
}

// ListDeadLetters exposes the dead-letter store for inspection.
func (uc *OutboxUseCase) ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error) {
	return uc.outboxRepo.ListDeadLetters(ctx, offset, limit)
}

// dispatchWithRepair runs one dispatch attempt, with at most one automatic
// full repair when the index itself is corrupted.
func (uc *OutboxUseCase) dispatchWithRepair(ctx context.Context, event *domain.OutboxEvent) error {
	err := uc.dispatchEvent(ctx, event)
	if !apperrors.Is(err, apperrors.ErrIndexCorrupted) || !uc.config.AutoRepair {
		return err
	}

	uc.logger.Warn("search index corrupted, running automatic repair",
		slog.String("event_id", event.ID.String()),
	)

	// The dispatch transaction pins one connection; the repair fans out over
	// worker goroutines and must query the pool, not that connection.
	repaired, repairErr := uc.repairer.Repair(database.WithoutTx(ctx), true)
	if repairErr != nil {
		return apperrors.Wrap(repairErr, "automatic index repair failed")
	}

	uc.logger.Info("automatic index repair finished", slog.Int("repaired", repaired))

	return uc.dispatchEvent(ctx, event)
}

// dispatchEvent reindexes or removes the file named by one outbox row. An
// unparsable payload can never be retried to success, so it is treated as
// dispatched with a warning.
func (uc *OutboxUseCase) dispatchEvent(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := event.ParsePayload()
	if err != nil {
		uc.logger.Warn("outbox event payload is unparsable, marking processed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.Any("error", err),
		)
		return nil
	}

	if event.EventType == domain.EventTypeRemoveFile {
		return uc.indexer.Remove(ctx, payload.FileID)
	}

	// The reload prefers the read replica; it must query the reader's own
	// pools, not the row transaction's connection.
	file, err := uc.fileReader.GetByID(database.WithoutTx(ctx), payload.FileID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// The file is gone; drop its index entry instead of retrying.
			return uc.indexer.Remove(ctx, payload.FileID)
		}
		return err
	}

	content, err := uc.contents.Fetch(ctx, file)
	if err != nil {
		return err
	}

	if err := uc.indexer.Index(ctx, file, content); err != nil {
		return err
	}

	return uc.confirmer.ConfirmIndexState(ctx, file)
}

// recordFailure increments the attempt counter and moves the row to the dead
// letter store once the budget is exhausted.
func (uc *OutboxUseCase) recordFailure(ctx context.Context, event *domain.OutboxEvent, dispatchErr error) error {
	uc.logger.Error("failed to dispatch outbox event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.Int("attempts", event.Attempts+1),
		slog.Any("error", dispatchErr),
	)

	event.RecordFailure(dispatchErr)
	uc.pipeline.RecordDispatchAttempts(ctx, 1)

	if event.BudgetExhausted(uc.config.MaxAttempts) {
		deadLetter := domain.NewDeadLetterEvent(event, uc.clock.Now())
		if err := uc.outboxRepo.CreateDeadLetter(ctx, deadLetter); err != nil {
			return err
		}

		uc.logger.Warn("outbox event dead-lettered",
			slog.String("event_id", event.ID.String()),
			slog.Int("attempts", event.Attempts),
		)
		uc.pipeline.RecordDeadLettered(ctx, 1)

		return uc.outboxRepo.Delete(ctx, event.ID)
	}

	return uc.outboxRepo.Update(ctx, event)
}
