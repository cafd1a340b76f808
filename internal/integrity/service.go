// Package integrity verifies agreement between the file catalog and the
// full-text index and repairs discrepancies by selective or full reindex.
package integrity

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
)

// FileRepository is the catalog surface the integrity service reads from.
type FileRepository interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogDomain.File, error)
	ConfirmIndexState(ctx context.Context, file *catalogDomain.File) error
}

// IndexStore is the index surface the integrity service reads and mutates.
type IndexStore interface {
	EnsureIndex(ctx context.Context) error
	ListIDs(ctx context.Context, pageSize int) ([]uuid.UUID, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
}

// Indexer projects one file into the index, recovering from drift internally.
type Indexer interface {
	Index(ctx context.Context, file *catalogDomain.File, content string) error
}

// ContentProvider supplies the indexable body for a file.
type ContentProvider interface {
	Fetch(ctx context.Context, file *catalogDomain.File) (string, error)
}

// Report lists the discrepancies found by Verify. Missing ids are catalog
// rows without an index entry; orphan ids are index entries without a
// catalog row.
type Report struct {
	MissingFileIDs []uuid.UUID `json:"missing_file_ids"`
	OrphanIndexIDs []uuid.UUID `json:"orphan_index_ids"`
}

// Clean reports whether the catalog and the index agree on membership.
func (r Report) Clean() bool {
	return len(r.MissingFileIDs) == 0 && len(r.OrphanIndexIDs) == 0
}

// Config bounds the service's scans and reindex fan-out.
type Config struct {
	PageSize  int
	BatchSize int
	Workers   int
}

// Service implements integrity verification and repair.
type Service struct {
	config   Config
	fileRepo FileRepository
	store    IndexStore
	indexer  Indexer
	contents ContentProvider
	logger   *slog.Logger
}

// NewService creates an integrity service. Zero config values get sane
// defaults.
func NewService(config Config, fileRepo FileRepository, store IndexStore, indexer Indexer, contents ContentProvider, logger *slog.Logger) *Service {
	if config.PageSize <= 0 {
		config.PageSize = 500
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &Service{
		config:   config,
		fileRepo: fileRepo,
		store:    store,
		indexer:  indexer,
		contents: contents,
		logger:   logger,
	}
}

// Verify compares catalog and index membership.
func (s *Service) Verify(ctx context.Context) (Report, error) {
	var report Report

	dbIDs, err := s.fileRepo.ListIDs(ctx)
	if err != nil {
		return report, err
	}

	indexIDs, err := s.store.ListIDs(ctx, s.config.PageSize)
	if err != nil {
		return report, err
	}

	indexed := make(map[uuid.UUID]struct{}, len(indexIDs))
	for _, id := range indexIDs {
		indexed[id] = struct{}{}
	}

	known := make(map[uuid.UUID]struct{}, len(dbIDs))
	for _, id := range dbIDs {
		known[id] = struct{}{}
		if _, ok := indexed[id]; !ok {
			report.MissingFileIDs = append(report.MissingFileIDs, id)
		}
	}

	for _, id := range indexIDs {
		if _, ok := known[id]; !ok {
			report.OrphanIndexIDs = append(report.OrphanIndexIDs, id)
		}
	}

	s.logger.Info("integrity verification finished",
		slog.Int("catalog_rows", len(dbIDs)),
		slog.Int("index_entries", len(indexIDs)),
		slog.Int("missing", len(report.MissingFileIDs)),
		slog.Int("orphans", len(report.OrphanIndexIDs)),
	)

	return report, nil
}

// Repair brings the index back into agreement with the catalog. With
// reindexAll it rebuilds every entry from source; otherwise it repairs only
// the discrepancies Verify found. Running it again with no new discrepancies
// is a no-op.
func (s *Service) Repair(ctx context.Context, reindexAll bool) (int, error) {
	if reindexAll {
		return s.repairAll(ctx)
	}
	return s.repairDiscrepancies(ctx)
}

func (s *Service) repairAll(ctx context.Context) (int, error) {
	if err := s.store.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	dbIDs, err := s.fileRepo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var repaired atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.config.Workers)

	for start := 0; start < len(dbIDs); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(dbIDs) {
			end = len(dbIDs)
		}
		batch := dbIDs[start:end]

		group.Go(func() error {
			count, err := s.reindexBatch(groupCtx, batch)
			repaired.Add(int64(count))
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return int(repaired.Load()), err
	}

	// Entries for rows that no longer exist have no source to rebuild from;
	// drop them.
	orphansRemoved, err := s.removeOrphans(ctx, dbIDs)
	if err != nil {
		return int(repaired.Load()), err
	}
	repaired.Add(int64(orphansRemoved))

	total := int(repaired.Load())
	s.logger.Info("full reindex finished", slog.Int("repaired", total))
	return total, nil
}

func (s *Service) repairDiscrepancies(ctx context.Context) (int, error) {
	report, err := s.Verify(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0

	for start := 0; start < len(report.MissingFileIDs); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(report.MissingFileIDs) {
			end = len(report.MissingFileIDs)
		}

		count, err := s.reindexBatch(ctx, report.MissingFileIDs[start:end])
		repaired += count
		if err != nil {
			return repaired, err
		}
	}

	for _, id := range report.OrphanIndexIDs {
		if err := s.store.Delete(ctx, id); err != nil {
			return repaired, err
		}
		repaired++
	}

	if repaired > 0 {
		s.logger.Info("selective repair finished", slog.Int("repaired", repaired))
	}
	return repaired, nil
}

// reindexBatch loads one batch of aggregates and rebuilds their entries.
func (s *Service) reindexBatch(ctx context.Context, ids []uuid.UUID) (int, error) {
	files, err := s.fileRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		file, ok := files[id]
		if !ok {
			continue
		}

		content, err := s.contents.Fetch(ctx, file)
		if err != nil {
			return count, err
		}

		if err := s.indexer.Index(ctx, file, content); err != nil {
			return count, err
		}

		if err := s.fileRepo.ConfirmIndexState(ctx, file); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// removeOrphans deletes index entries whose catalog rows are gone.
func (s *Service) removeOrphans(ctx context.Context, dbIDs []uuid.UUID) (int, error) {
	indexIDs, err := s.store.ListIDs(ctx, s.config.PageSize)
	if err != nil {
		return 0, err
	}

	known := make(map[uuid.UUID]struct{}, len(dbIDs))
	for _, id := range dbIDs {
		known[id] = struct{}{}
	}

	removed := 0
	for _, id := range indexIDs {
		if _, ok := known[id]; ok {
			continue
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
