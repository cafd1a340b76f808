package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

var fileColumns = []string{
	"id", "name", "extension", "mime_type", "author", "size_bytes", "version", "title",
	"schema_version", "search_stale", "last_indexed_at", "indexed_content_hash",
	"indexed_token_hash", "analyzer_version", "indexed_title", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgreSQLFileRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewPostgreSQLFileRepository(db), mock
}

func testFile(t *testing.T) *domain.File {
	t.Helper()

	file := domain.NewFile(uuid.Must(uuid.NewV7()), "report.pdf", "pdf", "application/pdf", "alice", 2048)
	file.Title = "Quarterly Report"
	return file
}

func fileRow(file *domain.File) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(fileColumns).AddRow(
		file.ID, file.Name, file.Extension, file.MimeType, file.Author,
		file.SizeBytes, file.Version, file.Title,
		file.Search.SchemaVersion, file.Search.Stale, nil,
		file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
		file.Search.IndexedTitle, now, now,
	)
}

func TestPostgreSQLFileRepositoryCreate(t *testing.T) {
	t.Run("inserts the aggregate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectExec("INSERT INTO files").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), file)
		assert.NoError(t, err)
	})

	t.Run("maps unique violations to conflict", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectExec("INSERT INTO files").
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(context.Background(), file)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPostgreSQLFileRepositoryUpdate(t *testing.T) {
	t.Run("updates when the version matches", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectExec("UPDATE files").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), file, 1)
		assert.NoError(t, err)
	})

	t.Run("reports a concurrency failure on a stale version", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectExec("UPDATE files").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), file, 1)
		assert.ErrorIs(t, err, apperrors.ErrConcurrency)
	})
}

func TestPostgreSQLFileRepositoryConfirmIndexState(t *testing.T) {
	repo, mock := newMockRepo(t)
	file := testFile(t)
	file.ConfirmIndexed(2, 3, "abc", "def", "quarterly report", time.Now())

	mock.ExpectExec("UPDATE files").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ConfirmIndexState(context.Background(), file)
	assert.NoError(t, err)
}

func TestPostgreSQLFileRepositoryGetByID(t *testing.T) {
	t.Run("returns the aggregate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectQuery("SELECT (.+) FROM files WHERE id").
			WithArgs(file.ID).
			WillReturnRows(fileRow(file))

		got, err := repo.GetByID(context.Background(), file.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, got.ID)
		assert.Equal(t, file.Name, got.Name)
		assert.True(t, got.Search.Stale)
		assert.Nil(t, got.Search.LastIndexedAt)
	})

	t.Run("returns not found for an unknown id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectQuery("SELECT (.+) FROM files WHERE id").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLFileRepositoryGetByIDs(t *testing.T) {
	t.Run("keys the result by id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		file := testFile(t)

		mock.ExpectQuery("SELECT (.+) FROM files WHERE id = ANY").
			WillReturnRows(fileRow(file))

		got, err := repo.GetByIDs(context.Background(), []uuid.UUID{file.ID, uuid.Must(uuid.NewV7())})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, file.Name, got[file.ID].Name)
	})

	t.Run("skips the query for an empty id list", func(t *testing.T) {
		repo, _ := newMockRepo(t)

		got, err := repo.GetByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestPostgreSQLFileRepositoryListIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := uuid.Must(uuid.NewV7())
	second := uuid.Must(uuid.NewV7())

	mock.ExpectQuery("SELECT id FROM files").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(first).AddRow(second))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
}

func TestPostgreSQLFileRepositoryDelete(t *testing.T) {
	t.Run("deletes the aggregate", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectExec("DELETE FROM files").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), id)
		assert.NoError(t, err)
	})

	t.Run("returns not found for an unknown id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.Must(uuid.NewV7())

		mock.ExpectExec("DELETE FROM files").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), id)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}
