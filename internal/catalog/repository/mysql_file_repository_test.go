package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/filecatalog/internal/errors"
)

func newMockMySQLRepo(t *testing.T) (*MySQLFileRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewMySQLFileRepository(db), mock
}

func TestMySQLFileRepositoryCreate(t *testing.T) {
	t.Run("inserts with a binary encoded id", func(t *testing.T) {
		repo, mock := newMockMySQLRepo(t)
		file := testFile(t)
		idBytes, err := file.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO files").
			WithArgs(
				idBytes, file.Name, file.Extension, file.MimeType, file.Author,
				file.SizeBytes, file.Version, file.Title,
				file.Search.SchemaVersion, file.Search.Stale, file.Search.LastIndexedAt,
				file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
				file.Search.IndexedTitle,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Create(context.Background(), file)
		assert.NoError(t, err)
	})

	t.Run("maps unique violations to conflict", func(t *testing.T) {
		repo, mock := newMockMySQLRepo(t)
		file := testFile(t)

		mock.ExpectExec("INSERT INTO files").
			WillReturnError(&mysql.MySQLError{Number: 1062})

		err := repo.Create(context.Background(), file)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestMySQLFileRepositoryUpdate(t *testing.T) {
	t.Run("reports a concurrency failure on a stale version", func(t *testing.T) {
		repo, mock := newMockMySQLRepo(t)
		file := testFile(t)

		mock.ExpectExec("UPDATE files").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), file, 1)
		assert.ErrorIs(t, err, apperrors.ErrConcurrency)
	})
}

func TestMySQLFileRepositoryGetByID(t *testing.T) {
	repo, mock := newMockMySQLRepo(t)
	file := testFile(t)
	indexedAt := time.Now().UTC().Truncate(time.Second)
	file.ConfirmIndexed(2, 3, "abc", "def", "quarterly report", indexedAt)
	idBytes, err := file.ID.MarshalBinary()
	require.NoError(t, err)

	rows := sqlmock.NewRows(fileColumns).AddRow(
		idBytes, file.Name, file.Extension, file.MimeType, file.Author,
		file.SizeBytes, file.Version, file.Title,
		file.Search.SchemaVersion, file.Search.Stale, indexedAt,
		file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
		file.Search.IndexedTitle, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM files WHERE id").
		WithArgs(idBytes).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
	assert.False(t, got.Search.Stale)
	require.NotNil(t, got.Search.LastIndexedAt)
	assert.Equal(t, indexedAt, *got.Search.LastIndexedAt)
}
