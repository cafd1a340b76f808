// Package domain defines the search-side value types: the indexable document
// and its derived signature.
package domain

import (
	"github.com/google/uuid"
)

// SchemaVersion is the current layout version of indexed documents. Bumped
// when the set of indexed fields changes.
const SchemaVersion = 2

// Document is the indexable view of a file: the fields that feed the
// full-text index. Built from the aggregate plus the extracted content.
type Document struct {
	FileID    uuid.UUID
	Title     string
	Author    string
	Extension string
	MimeType  string
	Content   string
}

// Signature is a deterministic fingerprint of a document's indexable content.
// Comparing it against the aggregate's recorded index state detects drift.
type Signature struct {
	AnalyzerVersion int
	TokenHash       string
	NormalizedTitle string
}
