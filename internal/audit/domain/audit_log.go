// Package domain defines the audit trail entities recorded alongside every
// committed catalog mutation.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Operation identifies the kind of catalog mutation an audit entry records.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationImport Operation = "import"
)

// AuditLog records a committed catalog mutation for compliance review. It is
// written in the same transaction as the mutation it describes, so a rolled
// back unit of work leaves no trace.
type AuditLog struct {
	ID        uuid.UUID      `json:"id"`
	RequestID string         `json:"request_id"`
	FileID    uuid.UUID      `json:"file_id"`
	Operation Operation      `json:"operation"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewAuditLog creates an audit entry with a time-ordered id.
func NewAuditLog(requestID string, fileID uuid.UUID, operation Operation, actor string, metadata map[string]any) *AuditLog {
	return &AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: requestID,
		FileID:    fileID,
		Operation: operation,
		Actor:     actor,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// EventLog is the durable record of a captured domain event. Unlike the
// outbox, entries here are never deleted; they form the event history for a
// file.
type EventLog struct {
	ID         uuid.UUID      `json:"id"`
	EventID    uuid.UUID      `json:"event_id"`
	EventType  string         `json:"event_type"`
	FileID     uuid.UUID      `json:"file_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEventLog creates an event history entry for a captured domain event.
func NewEventLog(eventID uuid.UUID, eventType string, fileID uuid.UUID, payload map[string]any, occurredAt time.Time) *EventLog {
	return &EventLog{
		ID:         uuid.Must(uuid.NewV7()),
		EventID:    eventID,
		EventType:  eventType,
		FileID:     fileID,
		Payload:    payload,
		OccurredAt: occurredAt,
		CreatedAt:  time.Now().UTC(),
	}
}
