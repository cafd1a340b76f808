// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/database"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	"github.com/allisson/filecatalog/internal/outbox/domain"
)

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL.
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository.
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{db: db}
}

// Create inserts a new outbox event. Runs in the transaction carried by ctx
// so the event record commits atomically with the triggering mutation.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, event_type, payload, attempts, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID, event.EventType, event.Payload,
		event.Attempts, event.LastError, event.ProcessedAt, event.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// GetPendingEvents retrieves unprocessed events oldest first, locking them so
// concurrent workers skip rows another worker already holds.
func (r *PostgreSQLOutboxEventRepository) GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, attempts, last_error, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE processed_at IS NULL
			  ORDER BY created_at ASC
			  LIMIT $1
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

		err := rows.Scan(&event.ID, &event.EventType, &event.Payload, &event.Attempts,
			&event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox event")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox events")
	}
	return events, nil
}

// Update persists attempt and processed-state changes on an outbox event.
func (r *PostgreSQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET attempts = $1, last_error = $2, processed_at = $3, updated_at = NOW()
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, event.Attempts, event.LastError, event.ProcessedAt, event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update outbox event")
	}
	return nil
}

// Delete removes an outbox event. Called when the row moves to the dead
// letter store.
func (r *PostgreSQLOutboxEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM outbox_events WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete outbox event")
	}
	return nil
}

// CreateDeadLetter inserts a terminal dead-letter record.
func (r *PostgreSQLOutboxEventRepository) CreateDeadLetter(ctx context.Context, event *domain.DeadLetterEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_dead_letter_events
				(id, outbox_id, event_type, payload, attempts, error, created_at, dead_lettered_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(ctx, query, event.ID, event.OutboxID, event.EventType,
		event.Payload, event.Attempts, event.Error, event.CreatedAt, event.DeadLetteredAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create dead letter event")
	}
	return nil
}

// ListDeadLetters retrieves dead-letter records newest first with pagination.
func (r *PostgreSQLOutboxEventRepository) ListDeadLetters(ctx context.Context, offset, limit int) ([]*domain.DeadLetterEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, outbox_id, event_type, payload, attempts, error, created_at, dead_lettered_at
			  FROM outbox_dead_letter_events
			  ORDER BY dead_lettered_at DESC
			  LIMIT $1 OFFSET $2`

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

		err := rows.Scan(&event.ID, &event.OutboxID, &event.EventType, &event.Payload,
			&event.Attempts, &event.Error, &event.CreatedAt, &event.DeadLetteredAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter event")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letter events")
	}
	return events, nil
}
