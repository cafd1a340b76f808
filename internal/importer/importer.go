// Package importer implements the batch import orchestrator: it maps
// external import payloads onto file aggregates, persists them in bounded
// transactions, and indexes them immediately or through the outbox.
package importer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/database"
	outboxDomain "github.com/allisson/filecatalog/internal/outbox/domain"
)

// Item is the transient projection of one external import payload. It exists
// only for the duration of a batch and is never persisted as its own entity.
type Item struct {
	FileID    uuid.UUID `json:"file_id"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	MimeType  string    `json:"mime_type"`
	Author    string    `json:"author"`
	SizeBytes int64     `json:"size_bytes"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Version   int64     `json:"version"`
}

// Options control one import run.
type Options struct {
	BatchSize        int
	UpsertSearch     bool
	DetachAfterBatch bool
}

// Result aggregates the outcome of one import run. BusyRetries counts
// transactions that had to be retried after lock contention; it is an
// observability signal, not a failure.
type Result struct {
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
	Updated     int `json:"updated"`
	BusyRetries int `json:"busy_retries"`
}

// Limits bound a single import transaction.
type Limits struct {
	MinBatchSize int
	MaxBatchSize int
	TxRetries    int
}

// FileRepository is the persistence surface the importer needs.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	Update(ctx context.Context, file *domain.File, expectedVersion int64) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.File, error)
	ConfirmIndexState(ctx context.Context, file *domain.File) error
}

// Indexer projects one file into the search index, recovering from drift
// internally.
type Indexer interface {
	Index(ctx context.Context, file *domain.File, content string) error
}

// OutboxEnqueuer records a deferred indexing intent in the same transaction.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error
}

// UseCase orchestrates batch imports.
type UseCase struct {
	limits    Limits
	txManager database.TxManager
	fileRepo  FileRepository
	indexer   Indexer
	outbox    OutboxEnqueuer
	logger    *slog.Logger
}

// NewUseCase creates an import orchestrator.
func NewUseCase(
	limits Limits,
	txManager database.TxManager,
	fileRepo FileRepository,
	indexer Indexer,
	outbox OutboxEnqueuer,
	logger *slog.Logger,
) *UseCase {
	return &UseCase{
		limits:    limits,
		txManager: txManager,
		fileRepo:  fileRepo,
		indexer:   indexer,
		outbox:    outbox,
		logger:    logger,
	}
}

// Import slices items into bounded chunks and persists each chunk in one
// transaction. Re-running an identical import is a no-op: an existing
// aggregate whose version has already reached the incoming item's version is
// skipped, never regressed.
func (uc *UseCase) Import(ctx context.Context, items []Item, opts Options) (Result, error) {
	var result Result

	batchSize := clampBatchSize(opts.BatchSize, uc.limits)
	txManager := database.NewRetryingTxManager(uc.txManager, uc.limits.TxRetries,
		func(ctx context.Context, attempt int) {
			result.BusyRetries++
			uc.logger.WarnContext(ctx, "import transaction retried after lock contention",
				slog.Int("attempt", attempt))
		})

	uc.logger.Info("starting import",
		slog.Int("items", len(items)),
		slog.Int("batch_size", batchSize),
		slog.Bool("upsert_search", opts.UpsertSearch),
	)

	for start := 0; start < len(items); start += batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		chunk, err := uc.importChunk(ctx, txManager, dedupe(items[start:end]), opts)
		if err != nil {
			return result, err
		}

		result.Imported += chunk.Imported
		result.Skipped += chunk.Skipped
		result.Updated += chunk.Updated
	}

	uc.logger.Info("import finished",
		slog.Int("imported", result.Imported),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("busy_retries", result.BusyRetries),
	)

	return result, nil
}

// persistedFile pairs a persisted aggregate with its indexable content for
// the indexing step of the same transaction.
type persistedFile struct {
	file    *domain.File
	content string
}

// importChunk persists one deduplicated chunk inside a single transaction.
// Counters live inside the transaction closure so a busy retry starts from a
// clean slate.
func (uc *UseCase) importChunk(ctx context.Context, txManager database.TxManager, chunk []Item, opts Options) (Result, error) {
	var result Result
	var persisted []persistedFile

	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		result = Result{}
		persisted = persisted[:0]

		ids := make([]uuid.UUID, 0, len(chunk))
		for _, item := range chunk {
			ids = append(ids, item.FileID)
		}

		existing, err := uc.fileRepo.GetByIDs(txCtx, ids)
		if err != nil {
			return err
		}

		for _, item := range chunk {
			file, ok := existing[item.FileID]
			if !ok {
				file = mapItem(item)
				if err := uc.fileRepo.Create(txCtx, file); err != nil {
					return err
				}
				result.Imported++
				persisted = append(persisted, persistedFile{file: file, content: item.Content})
				continue
			}

			if file.Version >= item.Version {
				result.Skipped++
				continue
			}

			expectedVersion := file.Version
			applyItem(file, item)
			if err := uc.fileRepo.Update(txCtx, file, expectedVersion); err != nil {
				return err
			}
			result.Updated++
			persisted = append(persisted, persistedFile{file: file, content: item.Content})
		}

		return uc.indexPersisted(txCtx, persisted, opts)
	})
	if err != nil {
		return Result{}, err
	}

	if opts.DetachAfterBatch {
		// Release chunk-local aggregate state so long imports do not carry
		// event buffers from batch to batch.
		for _, p := range persisted {
			p.file.ClearEvents()
		}
	}

	return result, nil
}

// indexPersisted indexes the chunk's persisted files immediately, or records
// deferred outbox intents, in the same transaction as the writes.
func (uc *UseCase) indexPersisted(ctx context.Context, persisted []persistedFile, opts Options) error {
	for _, p := range persisted {
		if !opts.UpsertSearch {
			if err := uc.outbox.Enqueue(ctx, outboxDomain.EventTypeIndexFile, p.file.ID); err != nil {
				return err
			}
			continue
		}

		if err := uc.indexer.Index(ctx, p.file, p.content); err != nil {
			return err
		}
		if err := uc.fileRepo.ConfirmIndexState(ctx, p.file); err != nil {
			return err
		}
	}
	return nil
}

// mapItem builds a new aggregate from an import item. The incoming version is
// honored so later re-imports of the same payload are skipped.
func mapItem(item Item) *domain.File {
	file := domain.NewFile(item.FileID, item.Name, item.Extension, item.MimeType, item.Author, item.SizeBytes)
	if item.Title != "" {
		file.Title = item.Title
	}
	if item.Version > file.Version {
		file.Version = item.Version
	}
	file.Emit(domain.NewEvent(domain.EventFileImported, file.ID, map[string]any{"version": file.Version}))
	return file
}

// applyItem copies an import item onto an existing aggregate and advances its
// version to the incoming one.
func applyItem(file *domain.File, item Item) {
	file.Name = item.Name
	file.Extension = item.Extension
	file.MimeType = item.MimeType
	file.Author = item.Author
	file.SizeBytes = item.SizeBytes
	if item.Title != "" {
		file.Title = item.Title
	}
	file.Version = item.Version
	file.MarkStale()
	file.Emit(domain.NewEvent(domain.EventFileImported, file.ID, map[string]any{"version": file.Version}))
}

// clampBatchSize keeps the chunk size inside the configured band.
func clampBatchSize(size int, limits Limits) int {
	if size < limits.MinBatchSize {
		return limits.MinBatchSize
	}
	if size > limits.MaxBatchSize {
		return limits.MaxBatchSize
	}
	return size
}

// dedupe collapses repeated identifiers inside one chunk; the last occurrence
// wins, an explicit tie-break for malformed input.
func dedupe(items []Item) []Item {
	position := make(map[uuid.UUID]int, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if at, ok := position[item.FileID]; ok {
			out[at] = item
			continue
		}
		position[item.FileID] = len(out)
		out = append(out, item)
	}
	return out
}
