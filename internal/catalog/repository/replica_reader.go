package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/database"
)

// FileReader is the read-only subset of the file repository used by query
// paths that can tolerate replica lag.
type FileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.File, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ReplicaFileReader serves reads from a replica and falls back to the primary
// when the replica has not applied the latest schema migration yet. A missing
// column error is the signal for that staleness.
type ReplicaFileReader struct {
	replica FileReader
	primary FileReader
}

// NewReplicaFileReader creates a reader that prefers replica over primary.
func NewReplicaFileReader(replica, primary FileReader) *ReplicaFileReader {
	return &ReplicaFileReader{replica: replica, primary: primary}
}

// GetByID retrieves a file aggregate, falling back to the primary on a stale
// replica schema.
func (r *ReplicaFileReader) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file, err := r.replica.GetByID(ctx, id)
	if err != nil && database.IsUndefinedColumn(err) {
		r.logFallback(ctx, "GetByID", err)
		return r.primary.GetByID(ctx, id)
	}
	return file, err
}

// GetByIDs retrieves multiple file aggregates, falling back to the primary on
// a stale replica schema.
func (r *ReplicaFileReader) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.File, error) {
	files, err := r.replica.GetByIDs(ctx, ids)
	if err != nil && database.IsUndefinedColumn(err) {
		r.logFallback(ctx, "GetByIDs", err)
		return r.primary.GetByIDs(ctx, ids)
	}
	return files, err
}

// ListIDs lists all file ids, falling back to the primary on a stale replica
// schema.
func (r *ReplicaFileReader) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := r.replica.ListIDs(ctx)
	if err != nil && database.IsUndefinedColumn(err) {
		r.logFallback(ctx, "ListIDs", err)
		return r.primary.ListIDs(ctx)
	}
	return ids, err
}

func (r *ReplicaFileReader) logFallback(ctx context.Context, operation string, err error) {
	slog.WarnContext(ctx, "replica schema is stale, falling back to primary",
		"operation", operation,
		"error", err.Error(),
	)
}
