package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/catalog/session"
	"github.com/allisson/filecatalog/internal/metrics"
)

// fileUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type fileUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewFileUseCaseWithMetrics wraps a UseCase with metrics recording.
func NewFileUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &fileUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// CreateFile records metrics for file creation operations.
func (f *fileUseCaseWithMetrics) CreateFile(
	ctx context.Context,
	req session.Request,
	input CreateFileInput,
) (*domain.File, error) {
	start := time.Now()
	file, err := f.next.CreateFile(ctx, req, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "catalog", "file_create", status)
	f.metrics.RecordDuration(ctx, "catalog", "file_create", time.Since(start), status)

	return file, err
}

// UpdateFile records metrics for file update operations.
func (f *fileUseCaseWithMetrics) UpdateFile(
	ctx context.Context,
	req session.Request,
	id uuid.UUID,
	input UpdateFileInput,
) (*domain.File, error) {
	start := time.Now()
	file, err := f.next.UpdateFile(ctx, req, id, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "catalog", "file_update", status)
	f.metrics.RecordDuration(ctx, "catalog", "file_update", time.Since(start), status)

	return file, err
}

// GetFile records metrics for file retrieval operations.
func (f *fileUseCaseWithMetrics) GetFile(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	start := time.Now()
	file, err := f.next.GetFile(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "catalog", "file_get", status)
	f.metrics.RecordDuration(ctx, "catalog", "file_get", time.Since(start), status)

	return file, err
}

// DeleteFile records metrics for file deletion operations.
func (f *fileUseCaseWithMetrics) DeleteFile(ctx context.Context, req session.Request, id uuid.UUID) error {
	start := time.Now()
	err := f.next.DeleteFile(ctx, req, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "catalog", "file_delete", status)
	f.metrics.RecordDuration(ctx, "catalog", "file_delete", time.Since(start), status)

	return err
}
