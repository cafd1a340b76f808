package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	auditDomain "github.com/allisson/filecatalog/internal/audit/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// MySQLAuditLogRepository implements AuditLog persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// NewMySQLAuditLogRepository creates a new MySQL AuditLog repository.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}

// Create inserts a new AuditLog using BINARY(16) for UUIDs. Participates in
// the transaction carried by ctx. Handles nil metadata as database NULL.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, auditLog *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	var metadataJSON []byte
	var err error

	if auditLog.Metadata != nil {
		metadataJSON, err = json.Marshal(auditLog.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	id, err := auditLog.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}

	fileID, err := auditLog.FileID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log file_id")
	}

	query := `INSERT INTO audit_logs (id, request_id, file_id, operation, actor, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		auditLog.RequestID,
		fileID,
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

// List retrieves audit logs ordered by created_at descending (newest first)
// with pagination. UUIDs are stored as BINARY(16) and must be unmarshaled.
func (m *MySQLAuditLogRepository) List(ctx context.Context, offset, limit int) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, request_id, file_id, operation, actor, metadata, created_at
			  FROM audit_logs
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

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
		var idBinary, fileIDBinary []byte
		var metadataJSON []byte
		var operation string

		err := rows.Scan(
			&idBinary,
			&auditLog.RequestID,
			&fileIDBinary,
			&operation,
			&auditLog.Actor,
			&metadataJSON,
			&auditLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}

		if err := auditLog.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
		}

		if err := auditLog.FileID.UnmarshalBinary(fileIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log file_id")
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
