package integrity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/allisson/filecatalog/internal/catalog/domain"
)

type fakeCatalog struct {
	files map[uuid.UUID]*catalogDomain.File
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{files: make(map[uuid.UUID]*catalogDomain.File)}
}

func (c *fakeCatalog) add() *catalogDomain.File {
	file := catalogDomain.NewFile(uuid.Must(uuid.NewV7()), "doc.txt", "txt", "text/plain", "erin", 32)
	c.files[file.ID] = file
	return file
}

func (c *fakeCatalog) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(c.files))
	for id := range c.files {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *fakeCatalog) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogDomain.File, error) {
	out := make(map[uuid.UUID]*catalogDomain.File)
	for _, id := range ids {
		if file, ok := c.files[id]; ok {
			out[id] = file
		}
	}
	return out, nil
}

func (c *fakeCatalog) ConfirmIndexState(_ context.Context, _ *catalogDomain.File) error {
	return nil
}

// fakeIndex tracks index membership only, which is all Verify and the orphan
// sweep look at.
type fakeIndex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]struct{}
	ensured int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[uuid.UUID]struct{})}
}

func (s *fakeIndex) EnsureIndex(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensured++
	return nil
}

func (s *fakeIndex) ListIDs(_ context.Context, _ int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeIndex) Delete(_ context.Context, fileID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fileID)
	return nil
}

func (s *fakeIndex) put(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = struct{}{}
}

// storeBackedIndexer writes membership into the fake index.
type storeBackedIndexer struct {
	store *fakeIndex
}

func (i *storeBackedIndexer) Index(_ context.Context, file *catalogDomain.File, _ string) error {
	i.store.put(file.ID)
	return nil
}

type metadataContents struct{}

func (metadataContents) Fetch(_ context.Context, file *catalogDomain.File) (string, error) {
	return file.Title, nil
}

func newService(catalog *fakeCatalog, store *fakeIndex) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(Config{BatchSize: 2, Workers: 2}, catalog, store,
		&storeBackedIndexer{store: store}, metadataContents{}, logger)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("reports a clean state when both stores agree", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		indexed := catalog.add()
		store.put(indexed.ID)

		report, err := newService(catalog, store).Verify(ctx)
		require.NoError(t, err)
		assert.True(t, report.Clean())
	})

	t.Run("reports missing and orphan ids", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		missing := catalog.add()
		orphan := uuid.Must(uuid.NewV7())
		store.put(orphan)

		report, err := newService(catalog, store).Verify(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{missing.ID}, report.MissingFileIDs)
		assert.Equal(t, []uuid.UUID{orphan}, report.OrphanIndexIDs)
		assert.False(t, report.Clean())
	})
}

func TestRepairDiscrepancies(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes missing rows and removes orphans", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		for i := 0; i < 5; i++ {
			catalog.add()
		}
		orphan := uuid.Must(uuid.NewV7())
		store.put(orphan)
		service := newService(catalog, store)

		repaired, err := service.Repair(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 6, repaired)

		report, err := service.Verify(ctx)
		require.NoError(t, err)
		assert.True(t, report.Clean())
	})

	t.Run("is a no-op when nothing drifted", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		file := catalog.add()
		store.put(file.ID)
		service := newService(catalog, store)

		repaired, err := service.Repair(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, repaired)
	})
}

func TestRepairAll(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuilds every entry and drops orphans", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		for i := 0; i < 7; i++ {
			catalog.add()
		}
		orphan := uuid.Must(uuid.NewV7())
		store.put(orphan)
		service := newService(catalog, store)

		repaired, err := service.Repair(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 8, repaired)
		assert.Equal(t, 1, store.ensured)

		report, err := service.Verify(ctx)
		require.NoError(t, err)
		assert.True(t, report.Clean())
	})

	t.Run("repairing twice stays in agreement", func(t *testing.T) {
		catalog := newFakeCatalog()
		store := newFakeIndex()
		catalog.add()
		service := newService(catalog, store)

		_, err := service.Repair(ctx, true)
		require.NoError(t, err)
		_, err = service.Repair(ctx, true)
		require.NoError(t, err)

		report, err := service.Verify(ctx)
		require.NoError(t, err)
		assert.True(t, report.Clean())
	})
}
