package projection

import (
	"context"

	"github.com/google/uuid"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/clock"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	searchDomain "github.com/allisson/filecatalog/internal/search/domain"
	"github.com/allisson/filecatalog/internal/search/signature"
)

// ScopeFactory opens a fresh projection scope for one indexing pass.
type ScopeFactory func() Scope

// Indexer combines signature computation and projection into the single
// index-one-file operation shared by the import path and the outbox
// dispatcher. On drift it falls back to a forced replace, so callers only see
// drift failures the projection could not recover from.
type Indexer struct {
	calculator *signature.Calculator
	projector  *Projector
	newScope   ScopeFactory
	clock      clock.Clock
}

// NewIndexer creates an indexer. A nil clock defaults to the system clock.
func NewIndexer(calculator *signature.Calculator, projector *Projector, newScope ScopeFactory, clk clock.Clock) *Indexer {
	if clk == nil {
		clk = clock.System{}
	}
	return &Indexer{
		calculator: calculator,
		projector:  projector,
		newScope:   newScope,
		clock:      clk,
	}
}

// Index projects one file into the search index and, on success, confirms
// the new index state onto the aggregate. The caller is responsible for
// persisting the confirmation.
func (i *Indexer) Index(ctx context.Context, file *catalogDomain.File, content string) error {
	doc := DocumentFor(file, content)
	sig := i.calculator.Compute(doc)
	contentHash := i.calculator.HashContent(doc)

	scope := i.newScope()
	expected := ExpectedState{
		ContentHash: file.Search.ContentHash,
		TokenHash:   file.Search.TokenHash,
	}

	_, err := i.projector.Upsert(ctx, scope, doc, sig, contentHash, expected)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrDrift) {
			return err
		}
		// The index no longer matches the last confirmed state. Replace the
		// entry wholesale instead of failing the indexing pass.
		if err := i.projector.ForceReplace(ctx, scope, doc, sig, contentHash); err != nil {
			return err
		}
	}

	if err := scope.Flush(ctx); err != nil {
		return err
	}

	file.ConfirmIndexed(
		searchDomain.SchemaVersion,
		sig.AnalyzerVersion,
		contentHash,
		sig.TokenHash,
		sig.NormalizedTitle,
		i.clock.Now(),
	)
	return nil
}

// Remove deletes a file's index entry.
func (i *Indexer) Remove(ctx context.Context, fileID uuid.UUID) error {
	return i.projector.Delete(ctx, fileID)
}
