package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// MySQLFileRepository handles file aggregate persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLFileRepository struct {
	db *sql.DB
}

// NewMySQLFileRepository creates a new MySQL file repository.
func NewMySQLFileRepository(db *sql.DB) *MySQLFileRepository {
	return &MySQLFileRepository{db: db}
}

const mysqlFileColumns = `id, name, extension, mime_type, author, size_bytes, version, title,
	schema_version, search_stale, last_indexed_at, indexed_content_hash,
	indexed_token_hash, analyzer_version, indexed_title, created_at, updated_at`

// Create inserts a new file aggregate including its search index state.
func (r *MySQLFileRepository) Create(ctx context.Context, file *domain.File) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := file.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file ID")
	}

	query := `INSERT INTO files (id, name, extension, mime_type, author, size_bytes, version, title,
				schema_version, search_stale, last_indexed_at, indexed_content_hash,
				indexed_token_hash, analyzer_version, indexed_title, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query,
		idBytes, file.Name, file.Extension, file.MimeType, file.Author, file.SizeBytes,
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
func (r *MySQLFileRepository) Update(ctx context.Context, file *domain.File, expectedVersion int64) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := file.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file ID")
	}

	query := `UPDATE files
			  SET name = ?, extension = ?, mime_type = ?, author = ?, size_bytes = ?,
			      version = ?, title = ?, search_stale = ?, updated_at = NOW()
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query,
		file.Name, file.Extension, file.MimeType, file.Author, file.SizeBytes,
		file.Version, file.Title, file.Search.Stale,
		idBytes, expectedVersion,
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
func (r *MySQLFileRepository) ConfirmIndexState(ctx context.Context, file *domain.File) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := file.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file ID")
	}

	query := `UPDATE files
			  SET schema_version = ?, search_stale = ?, last_indexed_at = ?,
			      indexed_content_hash = ?, indexed_token_hash = ?,
			      analyzer_version = ?, indexed_title = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query,
		file.Search.SchemaVersion, file.Search.Stale, file.Search.LastIndexedAt,
		file.Search.ContentHash, file.Search.TokenHash, file.Search.AnalyzerVersion,
		file.Search.IndexedTitle, idBytes,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to confirm index state")
	}
	return nil
}

// GetByID retrieves a file aggregate by id.
func (r *MySQLFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal file ID")
	}

	query := `SELECT ` + mysqlFileColumns + ` FROM files WHERE id = ?`

	file, err := scanMySQLFile(querier.QueryRowContext(ctx, query, idBytes))
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
func (r *MySQLFileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.File, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.File{}, nil
	}

	querier := database.GetTx(ctx, r.db)

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		idBytes, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal file ID")
		}
		placeholders = append(placeholders, "?")
		args = append(args, idBytes)
	}

	query := `SELECT ` + mysqlFileColumns + ` FROM files WHERE id IN (` +
		strings.Join(placeholders, ", ") + `)`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get files by ids")
	}
	defer func() {
		_ = rows.Close()
	}()

	files := make(map[uuid.UUID]*domain.File, len(ids))
	for rows.Next() {
		file, err := scanMySQLFile(rows)
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
func (r *MySQLFileRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
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
		var idBytes []byte
		if err := rows.Scan(&idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan file id")
		}
		id, err := uuid.FromBytes(idBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse file id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate file ids")
	}
	return ids, nil
}

// Delete removes a file aggregate.
func (r *MySQLFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal file ID")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, idBytes)
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

// scanMySQLFile decodes one files row, converting the BINARY(16) id column.
func scanMySQLFile(row rowScanner) (*domain.File, error) {
	var file domain.File
	var idBytes []byte
	var lastIndexedAt sql.NullTime

	err := row.Scan(
		&idBytes, &file.Name, &file.Extension, &file.MimeType, &file.Author,
		&file.SizeBytes, &file.Version, &file.Title,
		&file.Search.SchemaVersion, &file.Search.Stale, &lastIndexedAt,
		&file.Search.ContentHash, &file.Search.TokenHash, &file.Search.AnalyzerVersion,
		&file.Search.IndexedTitle, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, err
	}
	file.ID = id

	if lastIndexedAt.Valid {
		at := lastIndexedAt.Time
		file.Search.LastIndexedAt = &at
	}
	return &file, nil
}
