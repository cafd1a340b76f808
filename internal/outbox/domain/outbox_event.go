// Package domain defines the core outbox domain entities and types.
package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types carried through the outbox.
const (
	EventTypeIndexFile  = "search.index_file"
	EventTypeRemoveFile = "search.remove_file"
)

// ErrMissingFileID marks a payload that decoded but carries no usable file id.
var ErrMissingFileID = errors.New("outbox payload has no file id")

// OutboxEvent represents a deferred side effect recorded in the transactional
// outbox pattern. Rows stay pending until dispatched; the attempt counter is
// the circuit breaker, not elapsed time.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Attempts    int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IndexPayload is the payload shape carried by index events. At minimum the
// affected file id.
type IndexPayload struct {
	FileID uuid.UUID `json:"file_id"`
}

// NewOutboxEvent creates a pending outbox event for the given file.
func NewOutboxEvent(eventType string, fileID uuid.UUID) (*OutboxEvent, error) {
	payload, err := json.Marshal(IndexPayload{FileID: fileID})
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ParsePayload decodes the event payload. A payload without a usable file id
// is unparsable and can never be retried to success.
func (e *OutboxEvent) ParsePayload() (IndexPayload, error) {
	var payload IndexPayload
	if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
		return IndexPayload{}, err
	}
	if payload.FileID == uuid.Nil {
		return IndexPayload{}, ErrMissingFileID
	}
	return payload, nil
}

// MarkProcessed stamps the event as successfully dispatched, resetting the
// attempt counter and the last error from earlier failed attempts.
func (e *OutboxEvent) MarkProcessed(at time.Time) {
	e.ProcessedAt = &at
	e.Attempts = 0
	e.LastError = nil
}

// RecordFailure increments the attempt counter and keeps the error text for
// later inspection.
func (e *OutboxEvent) RecordFailure(err error) {
	e.Attempts++
	msg := err.Error()
	e.LastError = &msg
}

// BudgetExhausted reports whether the event has used up its retry budget.
func (e *OutboxEvent) BudgetExhausted(budget int) bool {
	return e.Attempts >= budget
}

// DeadLetterEvent is the terminal, append-only record of an outbox event that
// exhausted its retry budget. Never mutated after creation.
type DeadLetterEvent struct {
	ID             uuid.UUID
	OutboxID       uuid.UUID
	EventType      string
	Payload        string
	Attempts       int
	Error          string
	CreatedAt      time.Time
	DeadLetteredAt time.Time
}

// NewDeadLetterEvent captures an exhausted outbox event verbatim, plus the
// final error text and the dead-letter timestamp.
func NewDeadLetterEvent(event *OutboxEvent, at time.Time) *DeadLetterEvent {
	finalError := ""
	if event.LastError != nil {
		finalError = *event.LastError
	}

	return &DeadLetterEvent{
		ID:             uuid.Must(uuid.NewV7()),
		OutboxID:       event.ID,
		EventType:      event.EventType,
		Payload:        event.Payload,
		Attempts:       event.Attempts,
		Error:          finalError,
		CreatedAt:      event.CreatedAt,
		DeadLetteredAt: at,
	}
}
