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

// PostgreSQLEventLogRepository implements EventLog persistence for PostgreSQL.
type PostgreSQLEventLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventLogRepository creates a new PostgreSQL EventLog repository.
func NewPostgreSQLEventLogRepository(db *sql.DB) *PostgreSQLEventLogRepository {
	return &PostgreSQLEventLogRepository{db: db}
}

// Create inserts an event history entry. Participates in the transaction
// carried by ctx so the entry commits with the mutation that emitted the
// event.
func (p *PostgreSQLEventLogRepository) Create(ctx context.Context, eventLog *auditDomain.EventLog) error {
	querier := database.GetTx(ctx, p.db)

	var payloadJSON []byte
	var err error

	if eventLog.Payload != nil {
		payloadJSON, err = json.Marshal(eventLog.Payload)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal event log payload")
		}
	}

	query := `INSERT INTO event_logs (id, event_id, event_type, file_id, payload, occurred_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		eventLog.ID,
		eventLog.EventID,
		eventLog.EventType,
		eventLog.FileID,
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
func (p *PostgreSQLEventLogRepository) ListByFileID(ctx context.Context, fileID uuid.UUID, offset, limit int) ([]*auditDomain.EventLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, event_id, event_type, file_id, payload, occurred_at, created_at
			  FROM event_logs
			  WHERE file_id = $1
			  ORDER BY id ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, fileID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list event logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	eventLogs := make([]*auditDomain.EventLog, 0)
	for rows.Next() {
		var eventLog auditDomain.EventLog
		var payloadJSON []byte

		err := rows.Scan(
			&eventLog.ID,
			&eventLog.EventID,
			&eventLog.EventType,
			&eventLog.FileID,
			&payloadJSON,
			&eventLog.OccurredAt,
			&eventLog.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan event log")
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
