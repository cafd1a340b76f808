package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/filecatalog/internal/errors"
	outboxDomain "github.com/allisson/filecatalog/internal/outbox/domain"
)

type stubOutboxUseCase struct {
	drainFunc func(ctx context.Context) (int, error)
}

func (s *stubOutboxUseCase) Enqueue(ctx context.Context, eventType string, fileID uuid.UUID) error {
	return nil
}

func (s *stubOutboxUseCase) Start(ctx context.Context) error {
	return nil
}

func (s *stubOutboxUseCase) Drain(ctx context.Context) (int, error) {
	return s.drainFunc(ctx)
}

func (s *stubOutboxUseCase) ProcessEvents(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *stubOutboxUseCase) ListDeadLetters(ctx context.Context, offset, limit int) ([]*outboxDomain.DeadLetterEvent, error) {
	return nil, nil
}

func TestRunDrainOutbox(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		useCase := &stubOutboxUseCase{
			drainFunc: func(ctx context.Context) (int, error) { return 7, nil },
		}

		var out bytes.Buffer
		err := RunDrainOutbox(ctx, useCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Processed 7 outbox event(s)")
	})

	t.Run("json-output", func(t *testing.T) {
		useCase := &stubOutboxUseCase{
			drainFunc: func(ctx context.Context) (int, error) { return 0, nil },
		}

		var out bytes.Buffer
		err := RunDrainOutbox(ctx, useCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"processed": 0`)
	})

	t.Run("drain-error", func(t *testing.T) {
		useCase := &stubOutboxUseCase{
			drainFunc: func(ctx context.Context) (int, error) {
				return 0, apperrors.Wrap(apperrors.ErrIndexCorrupted, "index unavailable")
			},
		}

		err := RunDrainOutbox(ctx, useCase, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to drain outbox")
	})
}
