// Package projection applies catalog mutations to the full-text index with an
// optimistic drift check: the index entry's recorded signature must still
// match what the database expects before it is overwritten.
package projection

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/filecatalog/internal/clock"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	searchDomain "github.com/allisson/filecatalog/internal/search/domain"
	"github.com/allisson/filecatalog/internal/search/index"
)

// IndexStore is the slice of the search store the projector reads through.
type IndexStore interface {
	GetEntry(ctx context.Context, fileID uuid.UUID) (*index.Entry, error)
	Delete(ctx context.Context, fileID uuid.UUID) error
}

// Scope stages index mutations for a single unit of work. Satisfied by
// *index.Scope.
type Scope interface {
	StageSet(entry *index.Entry)
	StageDelete(fileID uuid.UUID)
	Flush(ctx context.Context) error
}

// ExpectedState mirrors the aggregate's last confirmed index signature. An
// empty state means the database expects no index entry to exist.
type ExpectedState struct {
	ContentHash string
	TokenHash   string
}

// Projector applies insert/update/delete operations to the search index.
type Projector struct {
	store IndexStore
	clock clock.Clock
}

// NewProjector creates a projector over the given index store.
func NewProjector(store IndexStore, clk clock.Clock) *Projector {
	if clk == nil {
		clk = clock.System{}
	}
	return &Projector{store: store, clock: clk}
}

// Upsert stages the document write if the index's currently recorded hashes
// match the caller's expectation. Returns true when a mutation was staged,
// false when the index already holds the new signature. If the stored
// signature has drifted from the expectation (index rebuilt out-of-band, or
// hash mismatch) it fails with ErrDrift rather than silently overwriting.
func (p *Projector) Upsert(
	ctx context.Context,
	scope Scope,
	doc searchDomain.Document,
	sig searchDomain.Signature,
	contentHash string,
	expected ExpectedState,
) (bool, error) {
	current, err := p.store.GetEntry(ctx, doc.FileID)
	if err != nil {
		return false, err
	}

	if current == nil {
		if expected.ContentHash != "" || expected.TokenHash != "" {
			return false, apperrors.Wrapf(
				apperrors.ErrDrift,
				"index entry for file %s missing but a confirmed signature exists", doc.FileID,
			)
		}
	} else {
		if current.ContentHash != expected.ContentHash || current.TokenHash != expected.TokenHash {
			return false, apperrors.Wrapf(
				apperrors.ErrDrift,
				"index entry for file %s holds signature %s/%s, expected %s/%s",
				doc.FileID, current.ContentHash, current.TokenHash,
				expected.ContentHash, expected.TokenHash,
			)
		}

		if current.ContentHash == contentHash &&
			current.TokenHash == sig.TokenHash &&
			current.AnalyzerVersion == sig.AnalyzerVersion {
			// Index already agrees with the new signature.
			return false, nil
		}
	}

	scope.StageSet(p.entry(doc, sig, contentHash))
	return true, nil
}

// ForceReplace deletes then re-inserts the document unconditionally. Used as
// the recovery path after a drift failure.
func (p *Projector) ForceReplace(
	ctx context.Context,
	scope Scope,
	doc searchDomain.Document,
	sig searchDomain.Signature,
	contentHash string,
) error {
	scope.StageDelete(doc.FileID)
	scope.StageSet(p.entry(doc, sig, contentHash))
	return nil
}

// Delete removes the index entry for a file that no longer exists.
func (p *Projector) Delete(ctx context.Context, fileID uuid.UUID) error {
	return p.store.Delete(ctx, fileID)
}

// entry builds the stored form of a projected document.
func (p *Projector) entry(
	doc searchDomain.Document,
	sig searchDomain.Signature,
	contentHash string,
) *index.Entry {
	return &index.Entry{
		FileID:          doc.FileID,
		Title:           sig.NormalizedTitle,
		Author:          doc.Author,
		Extension:       doc.Extension,
		MimeType:        doc.MimeType,
		Content:         doc.Content,
		ContentHash:     contentHash,
		TokenHash:       sig.TokenHash,
		AnalyzerVersion: sig.AnalyzerVersion,
		SchemaVersion:   searchDomain.SchemaVersion,
		IndexedAt:       p.clock.Now(),
	}
}
