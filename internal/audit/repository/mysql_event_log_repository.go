package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/filecatalog/internal/audit/domain"
	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// MySQLEventLogRepository implements EventLog persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLEventLogRepository struct {
	db *sql.DB
}

// NewMySQLEventLogRepository creates a new MySQL EventLog repository.
func NewMySQLEventLogRepository(db *sql.DB) *MySQLEventLogRepository {
	return &MySQLEventLogRepository{db: db}
}

// Create inserts an event history entry using BINARY(16) for UUIDs.
// Participates in the transaction carried by ctx.
func (m *MySQLEventLogRepository) Create(ctx context.Context, eventLog *auditDomain.EventLog) error {
	querier := database.GetTx(ctx, m.db)

	var payloadJSON []byte
	var err error

	if eventLog.Payload != nil {
		payloadJSON, err = json.Marshal(eventLog.Payload)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event log payload")
		}
	}

	id, err := eventLog.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event log id")
	}

	eventID, err := eventLog.EventID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event log event_id")
	}

	fileID, err := eventLog.FileID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal event log file_id")
	}

	query := `INSERT INTO event_logs (id, event_id, event_type, file_id, payload, occurred_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		eventID,
		eventLog.EventType,
		fileID,
		payloadJSON,
		eventLog.OccurredAt,
		eventLog.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "event already recorded")
		}
		return apperrors.Wrap(err, "failed to create event log")
	}

	return nil
}

// ListByFileID retrieves the event history for one file, oldest first.
func (m *MySQLEventLogRepository) ListByFileID(ctx context.Context, fileID uuid.UUID, offset, limit int) ([]*auditDomain.EventLog, error) {
	querier := database.GetTx(ctx, m.db)

	fileIDBytes, err := fileID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal file id")
	}

	query := `SELECT id, event_id, event_type, file_id, payload, occurred_at, created_at
			  FROM event_logs
			  WHERE file_id = ?
			  ORDER BY id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, fileIDBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list event logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	eventLogs := make([]*auditDomain.EventLog, 0)
	for rows.Next() {
		var eventLog auditDomain.EventLog
		var idBinary, eventIDBinary, fileIDBinary []byte
		var payloadJSON []byte

		err := rows.Scan(
			&idBinary,
			&eventIDBinary,
			&eventLog.EventType,
			&fileIDBinary,
			&payloadJSON,
			&eventLog.OccurredAt,
			&eventLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event log")
		}

		if err := eventLog.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event log id")
		}

		if err := eventLog.EventID.UnmarshalBinary(eventIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event log event_id")
		}

		if err := eventLog.FileID.UnmarshalBinary(fileIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal event log file_id")
		}

		if payloadJSON != nil {
			if err := json.Unmarshal(payloadJSON, &eventLog.Payload); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal event log payload")
			}
		}

		eventLogs = append(eventLogs, &eventLog)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate event logs")
	}

	return eventLogs, nil
}
