package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the file aggregate.
const (
	EventFileCreated  = "file.created"
	EventFileUpdated  = "file.updated"
	EventFileDeleted  = "file.deleted"
	EventFileImported = "file.imported"
)

// Event is a domain event captured by the session interceptor at commit time.
// The payload is explicit data chosen by the emitter; event consumers never
// reach into aggregate internals.
type Event struct {
	ID         uuid.UUID
	Type       string
	FileID     uuid.UUID
	Payload    map[string]any
	OccurredAt time.Time
}

// NewEvent creates an event for the given file with a v7 identity.
func NewEvent(eventType string, fileID uuid.UUID, payload map[string]any) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()),
		Type:       eventType,
		FileID:     fileID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}
