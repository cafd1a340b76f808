package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
	"github.com/allisson/filecatalog/internal/clock"
	"github.com/allisson/filecatalog/internal/search/index"
	"github.com/allisson/filecatalog/internal/search/signature"
)

func newTestIndexer(store *fakeStore) (*Indexer, *fakeScope) {
	scope := &fakeScope{store: store}
	fixed := clock.Fixed{At: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	projector := NewProjector(store, fixed)
	indexer := NewIndexer(signature.NewCalculator(), projector, func() Scope { return scope }, fixed)
	return indexer, scope
}

func indexerTestFile() *catalogDomain.File {
	file := catalogDomain.NewFile(uuid.Must(uuid.NewV7()), "release-notes.md", "md", "text/markdown", "carol", 512)
	file.Title = "Release Notes"
	return file
}

func TestIndexerIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("projects a new file and confirms the state", func(t *testing.T) {
		store := newFakeStore()
		indexer, scope := newTestIndexer(store)
		file := indexerTestFile()

		err := indexer.Index(ctx, file, "bug fixes and improvements")
		require.NoError(t, err)

		assert.True(t, scope.flushed)
		entry := store.entries[file.ID]
		require.NotNil(t, entry)
		assert.Equal(t, entry.ContentHash, file.Search.ContentHash)
		assert.Equal(t, entry.TokenHash, file.Search.TokenHash)
		assert.False(t, file.Search.Stale)
		require.NotNil(t, file.Search.LastIndexedAt)
	})

	t.Run("recovers from drift with a forced replace", func(t *testing.T) {
		store := newFakeStore()
		indexer, _ := newTestIndexer(store)
		file := indexerTestFile()

		require.NoError(t, indexer.Index(ctx, file, "original body"))

		// Simulate an out-of-band index rebuild with a stale signature.
		store.entries[file.ID].TokenHash = "stale-token-hash"

		err := indexer.Index(ctx, file, "updated body")
		require.NoError(t, err)
		assert.Equal(t, store.entries[file.ID].ContentHash, file.Search.ContentHash)
		assert.Equal(t, store.entries[file.ID].TokenHash, file.Search.TokenHash)
	})

	t.Run("is a no-op when the content is unchanged", func(t *testing.T) {
		store := newFakeStore()
		indexer, _ := newTestIndexer(store)
		file := indexerTestFile()

		require.NoError(t, indexer.Index(ctx, file, "same body"))
		first := *store.entries[file.ID]

		require.NoError(t, indexer.Index(ctx, file, "same body"))
		assert.Equal(t, first, *store.entries[file.ID])
	})

	t.Run("propagates store failures", func(t *testing.T) {
		store := newFakeStore()
		store.getErr = assert.AnError
		indexer, _ := newTestIndexer(store)
		file := indexerTestFile()

		err := indexer.Index(ctx, file, "body")
		assert.Error(t, err)
		assert.True(t, file.Search.Stale)
	})
}

func TestIndexerRemove(t *testing.T) {
	store := newFakeStore()
	indexer, _ := newTestIndexer(store)
	fileID := uuid.Must(uuid.NewV7())
	store.entries[fileID] = &index.Entry{FileID: fileID}

	err := indexer.Remove(context.Background(), fileID)
	require.NoError(t, err)
	assert.NotContains(t, store.entries, fileID)
}
