package index

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/rueidis"

	apperrors "github.com/allisson/filecatalog/internal/errors"
)

// Scope is the search-side unit of work. Mutations staged on a scope are held
// back until Flush sends them in a single round-trip, keeping the index
// untouched while the relational transaction is still in flight.
type Scope struct {
	store *Store
	cmds  []rueidis.Completed
}

// NewScope opens a projection scope on the store.
func (s *Store) NewScope() *Scope {
	return &Scope{store: s}
}

// StageSet stages a full write of the document entry.
func (sc *Scope) StageSet(entry *Entry) {
	cmd := sc.store.client.B().Hset().Key(sc.store.key(entry.FileID)).FieldValue()
	for field, value := range entryFields(entry) {
		cmd = cmd.FieldValue(field, value)
	}
	sc.cmds = append(sc.cmds, cmd.Build())
}

// StageDelete stages removal of the document for a file.
func (sc *Scope) StageDelete(fileID uuid.UUID) {
	sc.cmds = append(sc.cmds, sc.store.client.B().Del().Key(sc.store.key(fileID)).Build())
}

// Len reports the number of staged commands.
func (sc *Scope) Len() int {
	return len(sc.cmds)
}

// Flush executes the staged commands in one DoMulti round-trip and resets the
// scope. The first command error is returned.
func (sc *Scope) Flush(ctx context.Context) error {
	if len(sc.cmds) == 0 {
		return nil
	}

	results := sc.store.client.DoMulti(ctx, sc.cmds...)
	sc.cmds = nil

	for _, result := range results {
		if err := result.Error(); err != nil {
			return apperrors.Wrap(err, "failed to flush projection scope")
		}
	}
	return nil
}
