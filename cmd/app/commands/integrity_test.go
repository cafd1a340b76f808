package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/filecatalog/internal/errors"
	"github.com/allisson/filecatalog/internal/integrity"
)

type stubChecker struct {
	verifyFunc func(ctx context.Context) (integrity.Report, error)
	repairFunc func(ctx context.Context, reindexAll bool) (int, error)
}

func (s *stubChecker) Verify(ctx context.Context) (integrity.Report, error) {
	return s.verifyFunc(ctx)
}

func (s *stubChecker) Repair(ctx context.Context, reindexAll bool) (int, error) {
	return s.repairFunc(ctx, reindexAll)
}

func TestRunVerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("clean", func(t *testing.T) {
		checker := &stubChecker{
			verifyFunc: func(ctx context.Context) (integrity.Report, error) {
				return integrity.Report{}, nil
			},
		}

		var out bytes.Buffer
		err := RunVerifyIntegrity(ctx, checker, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "consistent with the catalog")
	})

	t.Run("discrepancies", func(t *testing.T) {
		missing := uuid.Must(uuid.NewV7())
		checker := &stubChecker{
			verifyFunc: func(ctx context.Context) (integrity.Report, error) {
				return integrity.Report{MissingFileIDs: []uuid.UUID{missing}}, nil
			},
		}

		var out bytes.Buffer
		err := RunVerifyIntegrity(ctx, checker, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "1 file(s) missing from the index")
		require.Contains(t, out.String(), missing.String())
	})

	t.Run("json-output", func(t *testing.T) {
		orphan := uuid.Must(uuid.NewV7())
		checker := &stubChecker{
			verifyFunc: func(ctx context.Context) (integrity.Report, error) {
				return integrity.Report{OrphanIndexIDs: []uuid.UUID{orphan}}, nil
			},
		}

		var out bytes.Buffer
		err := RunVerifyIntegrity(ctx, checker, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"orphan_index_ids"`)
		require.Contains(t, out.String(), orphan.String())
	})

	t.Run("verify-error", func(t *testing.T) {
		checker := &stubChecker{
			verifyFunc: func(ctx context.Context) (integrity.Report, error) {
				return integrity.Report{}, apperrors.Wrap(apperrors.ErrIndexCorrupted, "ft info failed")
			},
		}

		err := RunVerifyIntegrity(ctx, checker, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to verify integrity")
	})
}

func TestRunRepairIndex(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("selective", func(t *testing.T) {
		checker := &stubChecker{
			repairFunc: func(ctx context.Context, reindexAll bool) (int, error) {
				require.False(t, reindexAll)
				return 3, nil
			},
		}

		var out bytes.Buffer
		err := RunRepairIndex(ctx, checker, logger, &out, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Reindexed 3 document(s)")
	})

	t.Run("full-json", func(t *testing.T) {
		checker := &stubChecker{
			repairFunc: func(ctx context.Context, reindexAll bool) (int, error) {
				require.True(t, reindexAll)
				return 42, nil
			},
		}

		var out bytes.Buffer
		err := RunRepairIndex(ctx, checker, logger, &out, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"reindexed_documents": 42`)
		require.Contains(t, out.String(), `"all": true`)
	})

	t.Run("repair-error", func(t *testing.T) {
		checker := &stubChecker{
			repairFunc: func(ctx context.Context, reindexAll bool) (int, error) {
				return 0, apperrors.Wrap(apperrors.ErrIndexCorrupted, "rebuild failed")
			},
		}

		err := RunRepairIndex(ctx, checker, logger, &bytes.Buffer{}, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to repair index")
	})
}
