// Package repository provides data persistence implementations for catalog entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// PostgreSQLFileRepository handles file aggregate persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLFileRepository struct {
	db *sql.DB
}

// NewPostgreSQLFileRepository creates a new PostgreSQL file repository.
func NewPostgreSQLFileRepository(db *sql.DB) *PostgreSQLFileRepository {
	return &PostgreSQLFileRepository{db: db}
}

const pgFileColumns = `id, name, extension, mime_type, author, size_bytes, version, title,
	schema_version, search_stale, last_indexed_at, indexed_content_hash,
	indexed_token_hash, analyzer_version, indexed_title, created_at, updated_at`

// Create inserts a new file aggregate including its search index state.
func (r *PostgreSQLFileRepository) Create(ctx context.Context, file *domain.File) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO files (id, name, extension, mime_type, author, size_bytes, version, title,
				schema_version, search_stale, last_indexed_at, indexed_content_hash,
				indexed_token_hash, analyzer_version, indexed_title, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query,
		file.ID, file.Name, file.Extension, file.MimeType, file.Author, file.SizeBytes,
		file.Version, file.Title,
		file.Search.SchemaVersion, file.Search.Stale, file.Search.LastIndexedAt,
		file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
		file.Search.IndexedTitle,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "file already exists")
		}
		return apperrors.Wrap(err, "failed to create file")
	}
	return nil
}

// Update persists the aggregate if the stored version still matches
// expectedVersion. A zero-row update means another writer advanced the
// aggregate first and is reported as a concurrency failure.
func (r *PostgreSQLFileRepository) Update(ctx context.Context, file *domain.File, expectedVersion int64) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE files
			  SET name = $1, extension = $2, mime_type = $3, author = $4, size_bytes = $5,
			      version = $6, title = $7, search_stale = $8, updated_at = NOW()
			  WHERE id = $9 AND version = $10`

	result, err := querier.ExecContext(ctx, query,
		file.Name, file.Extension, file.MimeType, file.Author, file.SizeBytes,
		file.Version, file.Title, file.Search.Stale,
		file.ID, expectedVersion,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update file")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read update result")
	}
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrConcurrency,
			"file %s version %d no longer current", file.ID, expectedVersion)
	}
	return nil
}

// ConfirmIndexState persists a successful projection confirmation onto the
// aggregate row. Only touches the search index state columns.
func (r *PostgreSQLFileRepository) ConfirmIndexState(ctx context.Context, file *domain.File) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE files
			  SET schema_version = $1, search_stale = $2, last_indexed_at = $3,
			      indexed_content_hash = $4, indexed_token_hash = $5,
			      analyzer_version = $6, indexed_title = $7, updated_at = NOW()
			  WHERE id = $8`

	_, err := querier.ExecContext(ctx, query,
		file.Search.SchemaVersion, file.Search.Stale, file.Search.LastIndexedAt,
		file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
		file.Search.IndexedTitle, file.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm index state")
	}
	return nil
}

// GetByID retrieves a file aggregate by id.
func (r *PostgreSQLFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgFileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "file %s", id)
		}
		return nil, apperrors.Wrap(err, "failed to get file by id")
	}
	return file, nil
}

// GetByIDs loads the aggregates for the given ids, keyed by id. Missing ids
// are simply absent from the result.
func (r *PostgreSQLFileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.File, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.File{}, nil
	}

	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + pgFileColumns + ` FROM files WHERE id = ANY($1)`

	rows, err := querier.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get files by ids")
	}
	defer func() {
		_ = rows.Close()
	}()

	files := make(map[uuid.UUID]*domain.File, len(ids))
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan file")
		}
		files[file.ID] = file
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate files")
	}
	return files, nil
}

// ListIDs returns every file id in the catalog. Used by the integrity service
// to compare database and index membership.
func (r *PostgreSQLFileRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, `SELECT id FROM files ORDER BY id`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list file ids")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan file id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate file ids")
	}
	return ids, nil
}

// Delete removes a file aggregate.
func (r *PostgreSQLFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete file")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read delete result")
	}
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "file %s", id)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFile decodes one files row into an aggregate.
func scanFile(row rowScanner) (*domain.File, error) {
	var file domain.File
	var lastIndexedAt sql.NullTime

	err := row.Scan(
		&file.ID, &file.Name, &file.Extension, &file.MimeType, &file.Author,
		&file.SizeBytes, &file.Version, &file.Title,
		&file.Search.SchemaVersion, &file.Search.Stale, &lastIndexedAt,
		&file.Search.ContentHash, &file.Search.TokenHash, &file.Search.AnalyzerVersion,
		&file.Search.IndexedTitle, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastIndexedAt.Valid {
		at := lastIndexedAt.Time
		file.Search.LastIndexedAt = &at
	}
	return &file, nil
}
