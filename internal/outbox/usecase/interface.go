// Package usecase implements the outbox dispatch pipeline: the polling
// worker, the on-demand drain, and the shared event processing core.
package usecase

import (
	"context"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/outbox/domain"
)

// OutboxEventRepository defines outbox event persistence operations.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateDeadLetter(ctx context.Context, event *domain.DeadLetterEvent) error
	ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error)
}

// FileReader reloads the affected aggregate before reindexing.
type FileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalogDomain.File, error)
}

// FileConfirmer persists a confirmed index state back onto the aggregate row.
type FileConfirmer interface {
	ConfirmIndexState(ctx context.Context, file *catalogDomain.File) error
}

// Indexer projects one file into the search index or removes its entry.
type Indexer interface {
	Index(ctx context.Context, file *catalogDomain.File, content string) error
	Remove(ctx context.Context, fileID uuid.UUID) error
}

// ContentProvider supplies the indexable body for a file.
type ContentProvider interface {
	Fetch(ctx context.Context, file *catalogDomain.File) (string, error)
}

// Repairer performs a full-text index repair. Satisfied by the integrity
// service.
type Repairer interface {
	Repair(ctx context.Context, reindexAll bool) (int, error)
}

// UseCase defines the outbox pipeline operations.
type UseCase interface {
	Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error
	Start(ctx context.Context) error
	Drain(ctx context.Context) (int, error)
	ProcessEvents(ctx context.Context) (int, error)
	ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error)
}
