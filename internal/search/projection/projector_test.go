package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/filecatalog/internal/clock"
	apperrors "github.com/allisson/filecatalog/internal/errors"
	searchDomain "github.com/allisson/filecatalog/internal/search/domain"
	"github.com/allisson/filecatalog/internal/search/index"
)

// fakeStore keeps entries in memory.
type fakeStore struct {
	entries map[uuid.UUID]*index.Entry
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[uuid.UUID]*index.Entry)}
}

func (s *fakeStore) GetEntry(ctx context.Context, fileID uuid.UUID) (*index.Entry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.entries[fileID], nil
}

func (s *fakeStore) Delete(ctx context.Context, fileID uuid.UUID) error {
	delete(s.entries, fileID)
	return nil
}

// fakeScope applies staged mutations to the fake store on Flush.
type fakeScope struct {
	store   *fakeStore
	sets    []*index.Entry
	deletes []uuid.UUID
	flushed bool
}

func (sc *fakeScope) StageSet(entry *index.Entry)  { sc.sets = append(sc.sets, entry) }
func (sc *fakeScope) StageDelete(fileID uuid.UUID) { sc.deletes = append(sc.deletes, fileID) }

func (sc *fakeScope) Flush(ctx context.Context) error {
	for _, id := range sc.deletes {
		delete(sc.store.entries, id)
	}
	for _, entry := range sc.sets {
		sc.store.entries[entry.FileID] = entry
	}
	sc.flushed = true
	return nil
}

func testDoc(fileID uuid.UUID) (searchDomain.Document, searchDomain.Signature, string) {
	doc := searchDomain.Document{
		FileID:    fileID,
		Title:     "Release Notes",
		Author:    "carol",
		Extension: "md",
		MimeType:  "text/markdown",
		Content:   "bug fixes and improvements",
	}
	sig := searchDomain.Signature{
		AnalyzerVersion: 3,
		TokenHash:       "tok-1",
		NormalizedTitle: "release notes",
	}
	return doc, sig, "content-1"
}

func TestUpsert_InsertWhenAbsent(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, clock.Fixed{At: time.Unix(1700000000, 0).UTC()})
	scope := &fakeScope{store: store}

	fileID := uuid.Must(uuid.NewV7())
	doc, sig, contentHash := testDoc(fileID)

	projected, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash, ExpectedState{})

	require.NoError(t, err)
	assert.True(t, projected)

	require.NoError(t, scope.Flush(context.Background()))
	entry := store.entries[fileID]
	require.NotNil(t, entry)
	assert.Equal(t, "tok-1", entry.TokenHash)
	assert.Equal(t, "content-1", entry.ContentHash)
	assert.Equal(t, "release notes", entry.Title)
	assert.Equal(t, searchDomain.SchemaVersion, entry.SchemaVersion)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), entry.IndexedAt)
}

func TestUpsert_DriftWhenEntryMissingButExpected(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	doc, sig, contentHash := testDoc(uuid.Must(uuid.NewV7()))

	_, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash,
		ExpectedState{ContentHash: "old-content", TokenHash: "old-tok"})

	assert.ErrorIs(t, err, apperrors.ErrDrift)
	assert.Empty(t, scope.sets)
}

func TestUpsert_DriftWhenStoredSignatureDiffers(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	fileID := uuid.Must(uuid.NewV7())
	doc, sig, contentHash := testDoc(fileID)

	// Index was rebuilt out-of-band with a different signature.
	store.entries[fileID] = &index.Entry{FileID: fileID, ContentHash: "rogue", TokenHash: "rogue"}

	_, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash,
		ExpectedState{ContentHash: "old-content", TokenHash: "old-tok"})

	assert.ErrorIs(t, err, apperrors.ErrDrift)
}

func TestUpsert_UpdateWhenExpectationMatches(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	fileID := uuid.Must(uuid.NewV7())
	doc, sig, contentHash := testDoc(fileID)

	store.entries[fileID] = &index.Entry{
		FileID: fileID, ContentHash: "old-content", TokenHash: "old-tok", AnalyzerVersion: 3,
	}

	projected, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash,
		ExpectedState{ContentHash: "old-content", TokenHash: "old-tok"})

	require.NoError(t, err)
	assert.True(t, projected)
}

func TestUpsert_NoOpWhenSignatureUnchanged(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	fileID := uuid.Must(uuid.NewV7())
	doc, sig, contentHash := testDoc(fileID)

	store.entries[fileID] = &index.Entry{
		FileID:          fileID,
		ContentHash:     contentHash,
		TokenHash:       sig.TokenHash,
		AnalyzerVersion: sig.AnalyzerVersion,
	}

	projected, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash,
		ExpectedState{ContentHash: contentHash, TokenHash: sig.TokenHash})

	require.NoError(t, err)
	assert.False(t, projected)
	assert.Empty(t, scope.sets)
}

func TestForceReplace_BypassesDriftCheck(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	fileID := uuid.Must(uuid.NewV7())
	doc, sig, contentHash := testDoc(fileID)

	store.entries[fileID] = &index.Entry{FileID: fileID, ContentHash: "rogue", TokenHash: "rogue"}

	err := projector.ForceReplace(context.Background(), scope, doc, sig, contentHash)
	require.NoError(t, err)
	require.NoError(t, scope.Flush(context.Background()))

	entry := store.entries[fileID]
	require.NotNil(t, entry)
	assert.Equal(t, sig.TokenHash, entry.TokenHash)
	assert.Equal(t, contentHash, entry.ContentHash)
}

func TestDelete_RemovesEntry(t *testing.T) {
	store := newFakeStore()
	projector := NewProjector(store, nil)

	fileID := uuid.Must(uuid.NewV7())
	store.entries[fileID] = &index.Entry{FileID: fileID}

	require.NoError(t, projector.Delete(context.Background(), fileID))
	assert.Nil(t, store.entries[fileID])
}

func TestUpsert_StoreError(t *testing.T) {
	store := newFakeStore()
	store.getErr = assert.AnError
	projector := NewProjector(store, nil)
	scope := &fakeScope{store: store}

	doc, sig, contentHash := testDoc(uuid.Must(uuid.NewV7()))

	_, err := projector.Upsert(context.Background(), scope, doc, sig, contentHash, ExpectedState{})

	assert.ErrorIs(t, err, assert.AnError)
}
