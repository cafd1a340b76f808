package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	"github.com/allisson/filecatalog/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository.
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{db: db}
}

// Create inserts a new outbox event using BINARY(16) for the id.
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	query := `INSERT INTO outbox_events (id, event_type, payload, attempts, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`

	_, err = querier.ExecContext(ctx, query, id, event.EventType, event.Payload,
		event.Attempts, event.LastError, event.ProcessedAt, event.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetPendingEvents retrieves unprocessed events oldest first, locking them so
// concurrent workers skip rows another worker already holds.
func (r *MySQLOutboxEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, attempts, last_error, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE processed_at IS NULL
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get pending outbox events")
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		var idBinary []byte

		err := rows.Scan(&idBinary, &event.EventType, &event.Payload, &event.Attempts,
			&event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox event")
		}

		if err := event.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal outbox event id")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox events")
	}
	return events, nil
}

// Update persists attempt and processed-state changes on an outbox event.
func (r *MySQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	query := `UPDATE outbox_events
			  SET attempts = ?, last_error = ?, processed_at = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query, event.Attempts, event.LastError, event.ProcessedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}
	return nil
}

// Delete removes an outbox event. Called when the row moves to the dead
// letter store.
func (r *MySQLOutboxEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox event id")
	}

	_, err = querier.ExecContext(ctx, `DELETE FROM outbox_events WHERE id = ?`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete outbox event")
	}
	return nil
}

// CreateDeadLetter inserts a terminal dead-letter record.
func (r *MySQLOutboxEventRepository) CreateDeadLetter(ctx context.Context, event *domain.DeadLetterEvent) error {
	querier := database.GetTx(ctx, r.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter event id")
	}

	outboxID, err := event.OutboxID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter outbox id")
	}

	query := `INSERT INTO outbox_dead_letter_events
				(id, outbox_id, event_type, payload, attempts, error, created_at, dead_lettered_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, outboxID, event.EventType,
		event.Payload, event.Attempts, event.Error, event.CreatedAt, event.DeadLetteredAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create dead letter event")
	}
	return nil
}

// ListDeadLetters retrieves dead-letter records newest first with pagination.
func (r *MySQLOutboxEventRepository) ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, outbox_id, event_type, payload, attempts, error, created_at, dead_lettered_at
			  FROM outbox_dead_letter_events
			  ORDER BY dead_lettered_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letter events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*domain.DeadLetterEvent, 0)
	for rows.Next() {
		var event domain.DeadLetterEvent
		var idBinary, outboxIDBinary []byte

		err := rows.Scan(&idBinary, &outboxIDBinary, &event.EventType, &event.Payload,
			&event.Attempts, &event.Error, &event.CreatedAt, &event.DeadLetteredAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter event")
		}

		if err := event.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal dead letter event id")
		}

		if err := event.OutboxID.UnmarshalBinary(outboxIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal dead letter outbox id")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letter events")
	}
	return events, nil
}
