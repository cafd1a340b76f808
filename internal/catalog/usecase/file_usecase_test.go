package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/catalog/session"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	outboxDomain "github.com/allisson/filecatalog/internal/outbox/domain"
)

// stubUnitOfWork mimics the session interceptor contract: bump the version of
// every tracked aggregate, run the work, and clear events on success.
type stubUnitOfWork struct {
	requests []session.Request
	workErr  error
}

func (s *stubUnitOfWork) Save(ctx context.Context, req session.Request, work func(ctx context.Context) error, files ...*domain.File) error {
	s.requests = append(s.requests, req)
	for _, file := range files {
		file.Version++
	}
	if err := work(ctx); err != nil {
		for _, file := range files {
			file.Version--
		}
		return err
	}
	if s.workErr != nil {
		for _, file := range files {
			file.Version--
		}
		return s.workErr
	}
	for _, file := range files {
		file.ClearEvents()
	}
	return nil
}

type stubFileRepo struct {
	files   map[uuid.UUID]*domain.File
	created []*domain.File
	updated []*domain.File
	deleted []uuid.UUID

	createErr error
	updateErr error
}

func newStubFileRepo() *stubFileRepo {
	return &stubFileRepo{files: make(map[uuid.UUID]*domain.File)}
}

func (s *stubFileRepo) Create(_ context.Context, file *domain.File) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, file)
	s.files[file.ID] = file
	return nil
}

func (s *stubFileRepo) Update(_ context.Context, file *domain.File, expectedVersion int64) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.files[file.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return apperrors.Wrapf(apperrors.ErrConcurrency, "file %s version %d no longer current", file.ID, expectedVersion)
	}
	s.updated = append(s.updated, file)
	s.files[file.ID] = file
	return nil
}

func (s *stubFileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.File, error) {
	file, ok := s.files[id]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "file %s not found", id)
	}
	clone := *file
	return &clone, nil
}

func (s *stubFileRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.files[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.files, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubEnqueuer struct {
	enqueued []struct {
		eventType string
		fileID    uuid.UUID
	}
	err error
}

func (s *stubEnqueuer) Enqueue(_ context.Context, eventType string, fileID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, struct {
		eventType string
		fileID    uuid.UUID
	}{eventType, fileID})
	return nil
}

func newFileUseCase() (*FileUseCase, *stubUnitOfWork, *stubFileRepo, *stubEnqueuer) {
	uow := &stubUnitOfWork{}
	repo := newStubFileRepo()
	outbox := &stubEnqueuer{}
	return NewFileUseCase(uow, repo, repo, outbox), uow, repo, outbox
}

func validCreateInput() CreateFileInput {
	return CreateFileInput{
		Name:      "report.pdf",
		Extension: "pdf",
		MimeType:  "application/pdf",
		Author:    "alice",
		SizeBytes: 2048,
		Title:     "Quarterly Report",
	}
}

func TestFileUseCaseCreateFile(t *testing.T) {
	ctx := context.Background()
	req := session.Request{RequestID: "req-1", Actor: "alice"}

	t.Run("creates file with committed version 1", func(t *testing.T) {
		uc, uow, repo, outbox := newFileUseCase()

		file, err := uc.CreateFile(ctx, req, validCreateInput())
		require.NoError(t, err)

		assert.Equal(t, int64(1), file.Version)
		assert.Equal(t, "report.pdf", file.Name)
		assert.Equal(t, "Quarterly Report", file.Title)
		assert.True(t, file.Search.Stale)
		assert.Empty(t, file.PendingEvents())
		assert.Len(t, repo.created, 1)
		require.Len(t, outbox.enqueued, 1)
		assert.Equal(t, outboxDomain.EventTypeIndexFile, outbox.enqueued[0].eventType)
		assert.Equal(t, file.ID, outbox.enqueued[0].fileID)
		require.Len(t, uow.requests, 1)
		assert.Equal(t, "req-1", uow.requests[0].RequestID)
	})

	t.Run("normalizes extension and mime type", func(t *testing.T) {
		uc, _, _, _ := newFileUseCase()

		input := validCreateInput()
		input.Extension = " PDF "
		input.MimeType = " Application/PDF "

		file, err := uc.CreateFile(ctx, req, input)
		require.NoError(t, err)
		assert.Equal(t, "pdf", file.Extension)
		assert.Equal(t, "application/pdf", file.MimeType)
	})

	t.Run("defaults title to name", func(t *testing.T) {
		uc, _, _, _ := newFileUseCase()

		input := validCreateInput()
		input.Title = ""

		file, err := uc.CreateFile(ctx, req, input)
		require.NoError(t, err)
		assert.Equal(t, "report.pdf", file.Title)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		uc, _, repo, _ := newFileUseCase()

		tests := []struct {
			name  string
			input CreateFileInput
		}{
			{"blank name", func() CreateFileInput { i := validCreateInput(); i.Name = "   "; return i }()},
			{"bad extension", func() CreateFileInput { i := validCreateInput(); i.Extension = "p/df"; return i }()},
			{"bad mime type", func() CreateFileInput { i := validCreateInput(); i.MimeType = "not a mime"; return i }()},
			{"missing author", func() CreateFileInput { i := validCreateInput(); i.Author = ""; return i }()},
			{"negative size", func() CreateFileInput { i := validCreateInput(); i.SizeBytes = -1; return i }()},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := uc.CreateFile(ctx, req, tt.input)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			})
		}
		assert.Empty(t, repo.created)
	})

	t.Run("repository failure restores version and keeps events", func(t *testing.T) {
		uc, _, repo, outbox := newFileUseCase()
		repo.createErr = apperrors.ErrConflict

		_, err := uc.CreateFile(ctx, req, validCreateInput())
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Empty(t, outbox.enqueued)
	})
}

func TestFileUseCaseUpdateFile(t *testing.T) {
	ctx := context.Background()
	req := session.Request{RequestID: "req-2", Actor: "bob"}

	seed := func(t *testing.T, uc *FileUseCase) *domain.File {
		t.Helper()
		file, err := uc.CreateFile(ctx, session.Request{RequestID: "seed", Actor: "alice"}, validCreateInput())
		require.NoError(t, err)
		return file
	}

	t.Run("updates fields and bumps version", func(t *testing.T) {
		uc, _, repo, outbox := newFileUseCase()
		created := seed(t, uc)

		input := UpdateFileInput(validCreateInput())
		input.Title = "Annual Report"

		file, err := uc.UpdateFile(ctx, req, created.ID, input)
		require.NoError(t, err)

		assert.Equal(t, int64(2), file.Version)
		assert.Equal(t, "Annual Report", file.Title)
		assert.True(t, file.Search.Stale)
		assert.Len(t, repo.updated, 1)
		require.Len(t, outbox.enqueued, 2)
		assert.Equal(t, outboxDomain.EventTypeIndexFile, outbox.enqueued[1].eventType)
	})

	t.Run("returns not found for unknown file", func(t *testing.T) {
		uc, _, _, _ := newFileUseCase()

		_, err := uc.UpdateFile(ctx, req, uuid.Must(uuid.NewV7()), UpdateFileInput(validCreateInput()))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("concurrent update surfaces conflict", func(t *testing.T) {
		uc, _, repo, _ := newFileUseCase()
		created := seed(t, uc)

		// Another writer committed in between the read and the update.
		repo.updateErr = apperrors.Wrapf(apperrors.ErrConcurrency, "file %s version %d no longer current", created.ID, created.Version)

		_, err := uc.UpdateFile(ctx, req, created.ID, UpdateFileInput(validCreateInput()))
		assert.ErrorIs(t, err, apperrors.ErrConcurrency)
	})
}

func TestFileUseCaseGetFile(t *testing.T) {
	ctx := context.Background()

	uc, _, _, _ := newFileUseCase()
	created, err := uc.CreateFile(ctx, session.Request{RequestID: "seed", Actor: "alice"}, validCreateInput())
	require.NoError(t, err)

	file, err := uc.GetFile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, file.ID)

	_, err = uc.GetFile(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFileUseCaseDeleteFile(t *testing.T) {
	ctx := context.Background()
	req := session.Request{RequestID: "req-3", Actor: "carol"}

	t.Run("deletes file and enqueues removal", func(t *testing.T) {
		uc, _, repo, outbox := newFileUseCase()
		created, err := uc.CreateFile(ctx, session.Request{RequestID: "seed", Actor: "alice"}, validCreateInput())
		require.NoError(t, err)

		require.NoError(t, uc.DeleteFile(ctx, req, created.ID))
		assert.Equal(t, []uuid.UUID{created.ID}, repo.deleted)
		require.Len(t, outbox.enqueued, 2)
		assert.Equal(t, outboxDomain.EventTypeRemoveFile, outbox.enqueued[1].eventType)
	})

	t.Run("returns not found for unknown file", func(t *testing.T) {
		uc, _, _, _ := newFileUseCase()

		err := uc.DeleteFile(ctx, req, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
