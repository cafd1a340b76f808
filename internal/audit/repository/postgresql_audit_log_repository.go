// Package repository provides data persistence implementations for audit entities.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/filecatalog/internal/audit/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// PostgreSQLAuditLogRepository implements AuditLog persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL AuditLog repository.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}

// Create inserts a new AuditLog. Participates in the transaction carried by
// ctx so that audit entries commit or roll back with the mutation they
// describe. Handles nil metadata as database NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	var metadataJSON []byte
	var err error

	if auditLog.Metadata != nil {
		metadataJSON, err = json.Marshal(auditLog.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	query := `INSERT INTO audit_logs (id, request_id, file_id, operation, actor, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		auditLog.ID,
		auditLog.RequestID,
		auditLog.FileID,
		string(auditLog.Operation),
		auditLog.Actor,
		metadataJSON,
		auditLog.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// List retrieves audit logs ordered by ID descending (newest first) with
// pagination. Returns an empty slice if no audit logs are found.
func (p *PostgreSQLAuditLogRepository) List(ctx context.Context, offset, limit int) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, request_id, file_id, operation, actor, metadata, created_at
			  FROM audit_logs
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	auditLogs := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		var auditLog auditDomain.AuditLog
		var metadataJSON []byte
		var operation string

		err := rows.Scan(
			&auditLog.ID,
			&auditLog.RequestID,
			&auditLog.FileID,
			&operation,
			&auditLog.Actor,
			&metadataJSON,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		auditLog.Operation = auditDomain.Operation(operation)

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &auditLog.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal audit log metadata")
			}
		}

		auditLogs = append(auditLogs, &auditLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return auditLogs, nil
}
