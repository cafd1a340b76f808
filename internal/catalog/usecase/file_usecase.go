// Package usecase implements the catalog business logic and orchestrates file
// domain operations through the session interceptor.
package usecase

import (
	"context"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/catalog/session"
	outboxDomain "github.com/allisson/filecatalog/internal/outbox/domain"
	appValidation "github.com/allisson/filecatalog/internal/validation"
)

// CreateFileInput contains the input data for file creation.
type CreateFileInput struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	Author    string `json:"author"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title"`
}

// UpdateFileInput contains the input data for file updates. All descriptive
// fields are replaced.
type UpdateFileInput struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	Author    string `json:"author"`
	SizeBytes int64  `json:"size_bytes"`
	Title     string `json:"title"`
}

// UseCase defines the interface for file business logic operations.
type UseCase interface {
	CreateFile(ctx context.Context, req session.Request, input CreateFileInput) (*domain.File, error)
	UpdateFile(ctx context.Context, req session.Request, id uuid.UUID, input UpdateFileInput) (*domain.File, error)
	GetFile(ctx context.Context, id uuid.UUID) (*domain.File, error)
	DeleteFile(ctx context.Context, req session.Request, id uuid.UUID) error
}

// FileRepository defines the file persistence operations the use case needs.
type FileRepository interface {
	Create(ctx context.Context, file *domain.File) error
	Update(ctx context.Context, file *domain.File, expectedVersion int64) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// FileReader serves reads that can tolerate replica lag.
type FileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)
}

// OutboxEnqueuer records deferred indexing intents in the unit of work.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error
}

// UnitOfWork runs a business write with event capture, audit projection, and
// event history in one transaction. Satisfied by session.Interceptor.
type UnitOfWork interface {
	Save(ctx context.Context, req session.Request, work func(ctx context.Context) error, files ...*domain.File) error
}

// FileUseCase handles file-related business logic.
type FileUseCase struct {
	uow      UnitOfWork
	fileRepo FileRepository
	reader   FileReader
	outbox   OutboxEnqueuer
}

// NewFileUseCase creates a new FileUseCase.
func NewFileUseCase(uow UnitOfWork, fileRepo FileRepository, reader FileReader, outbox OutboxEnqueuer) *FileUseCase {
	return &FileUseCase{
		uow:      uow,
		fileRepo: fileRepo,
		reader:   reader,
		outbox:   outbox,
	}
}

func (uc *FileUseCase) validateCreateFileInput(input CreateFileInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Extension,
			validation.Required.Error("extension is required"),
			appValidation.Extension,
		),
		validation.Field(&input.MimeType,
			validation.Required.Error("mime_type is required"),
			appValidation.MimeType,
		),
		validation.Field(&input.Author,
			validation.Required.Error("author is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("author must be between 1 and 255 characters"),
		),
		validation.Field(&input.SizeBytes,
			validation.Min(int64(0)).Error("size_bytes must not be negative"),
		),
		validation.Field(&input.Title,
			validation.Length(0, 512).Error("title must be at most 512 characters"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateFile creates a file aggregate and records a deferred indexing intent
// in the same unit of work.
func (uc *FileUseCase) CreateFile(ctx context.Context, req session.Request, input CreateFileInput) (*domain.File, error) {
	if err := uc.validateCreateFileInput(input); err != nil {
		return nil, err
	}

	file := domain.NewFile(
		uuid.Must(uuid.NewV7()),
		strings.TrimSpace(input.Name),
		strings.ToLower(strings.TrimSpace(input.Extension)),
		strings.ToLower(strings.TrimSpace(input.MimeType)),
		strings.TrimSpace(input.Author),
		input.SizeBytes,
	)
	if title := strings.TrimSpace(input.Title); title != "" {
		file.Title = title
	}

	// The session bump supplies the first committed version.
	file.Version = 0
	file.Emit(domain.NewEvent(domain.EventFileCreated, file.ID, map[string]any{
		"name": file.Name,
	}))

	err := uc.uow.Save(ctx, req, func(txCtx context.Context) error {
		if err := uc.fileRepo.Create(txCtx, file); err != nil {
			return err
		}
		return uc.outbox.Enqueue(txCtx, outboxDomain.EventTypeIndexFile, file.ID)
	}, file)
	if err != nil {
		return nil, err
	}

	return file, nil
}

// UpdateFile replaces a file's descriptive fields, marks its index entry
// stale, and records a deferred reindexing intent.
func (uc *FileUseCase) UpdateFile(ctx context.Context, req session.Request, id uuid.UUID, input UpdateFileInput) (*domain.File, error) {
	if err := uc.validateCreateFileInput(CreateFileInput(input)); err != nil {
		return nil, err
	}

	file, err := uc.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expectedVersion := file.Version

	file.Name = strings.TrimSpace(input.Name)
	file.Extension = strings.ToLower(strings.TrimSpace(input.Extension))
	file.MimeType = strings.ToLower(strings.TrimSpace(input.MimeType))
	file.Author = strings.TrimSpace(input.Author)
	file.SizeBytes = input.SizeBytes
	if title := strings.TrimSpace(input.Title); title != "" {
		file.Title = title
	}
	file.MarkStale()
	file.Emit(domain.NewEvent(domain.EventFileUpdated, file.ID, map[string]any{
		"name": file.Name,
	}))

	err = uc.uow.Save(ctx, req, func(txCtx context.Context) error {
		if err := uc.fileRepo.Update(txCtx, file, expectedVersion); err != nil {
			return err
		}
		return uc.outbox.Enqueue(txCtx, outboxDomain.EventTypeIndexFile, file.ID)
	}, file)
	if err != nil {
		return nil, err
	}

	return file, nil
}

// GetFile retrieves a file aggregate, preferring the read replica.
func (uc *FileUseCase) GetFile(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	return uc.reader.GetByID(ctx, id)
}

// DeleteFile removes a file aggregate and records an index removal intent.
func (uc *FileUseCase) DeleteFile(ctx context.Context, req session.Request, id uuid.UUID) error {
	file, err := uc.fileRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	file.Emit(domain.NewEvent(domain.EventFileDeleted, file.ID, map[string]any{
		"name": file.Name,
	}))

	return uc.uow.Save(ctx, req, func(txCtx context.Context) error {
		if err := uc.fileRepo.Delete(txCtx, file.ID); err != nil {
			return err
		}
		return uc.outbox.Enqueue(txCtx, outboxDomain.EventTypeRemoveFile, file.ID)
	}, file)
}
