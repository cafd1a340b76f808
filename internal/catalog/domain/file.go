// Package domain defines the core catalog entities: the file aggregate and
// its embedded search index state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SearchIndexState records the last confirmed state of a file's full-text
// index entry. It is only mutated by a successful projection confirmation,
// never speculatively.
type SearchIndexState struct {
	SchemaVersion   int
	Stale           bool
	LastIndexedAt   *time.Time
	ContentHash     string
	TokenHash       string
	AnalyzerVersion int
	IndexedTitle    string
}

// File is the catalog aggregate root. Version strictly increases on every
// committed mutation; concurrent writers are rejected, not overwritten.
type File struct {
	ID        uuid.UUID
	Name      string
	Extension string
	MimeType  string
	Author    string
	SizeBytes int64
	Version   int64
	Title     string
	Search    SearchIndexState
	CreatedAt time.Time
	UpdatedAt time.Time

	pendingEvents []Event
}

// NewFile creates a file aggregate at version 1 with a stale index state.
func NewFile(id uuid.UUID, name, extension, mimeType, author string, sizeBytes int64) *File {
	return &File{
		ID:        id,
		Name:      name,
		Extension: extension,
		MimeType:  mimeType,
		Author:    author,
		SizeBytes: sizeBytes,
		Version:   1,
		Title:     name,
		Search:    SearchIndexState{Stale: true},
	}
}

// Emit queues a domain event for dispatch at commit time.
func (f *File) Emit(event Event) {
	f.pendingEvents = append(f.pendingEvents, event)
}

// PendingEvents returns the events queued since the last clear.
func (f *File) PendingEvents() []Event {
	return f.pendingEvents
}

// ClearEvents drains the pending event queue. Called once the unit of work
// that captured the events has committed.
func (f *File) ClearEvents() {
	f.pendingEvents = nil
}

// MarkStale flags the index entry as out of date without touching the last
// confirmed signature.
func (f *File) MarkStale() {
	f.Search.Stale = true
}

// ConfirmIndexed records a successful projection onto the aggregate. This is
// the only path that mutates the confirmed index signature.
func (f *File) ConfirmIndexed(schemaVersion, analyzerVersion int, contentHash, tokenHash, title string, at time.Time) {
	f.Search = SearchIndexState{
		SchemaVersion:   schemaVersion,
		Stale:           false,
		LastIndexedAt:   &at,
		ContentHash:     contentHash,
		TokenHash:       tokenHash,
		AnalyzerVersion: analyzerVersion,
		IndexedTitle:    title,
	}
}
