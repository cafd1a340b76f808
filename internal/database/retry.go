package database

import (
	"context"
)

// RetryObserver is notified whenever a transaction is retried after lock
// contention. Used to surface busy-retry counts as an observability signal.
type RetryObserver func(ctx context.Context, attempt int)

// retryingTxManager wraps a TxManager and retries the whole transaction on
// transient lock contention. Busy retries are reported, not surfaced as
// failures, as long as the transaction eventually commits within the budget.
type retryingTxManager struct {
	inner      TxManager
	maxRetries int
	onRetry    RetryObserver
}

// NewRetryingTxManager wraps inner with busy-retry behavior. maxRetries is the
// number of additional attempts allowed after the first failure; onRetry may
// be nil.
func NewRetryingTxManager(inner TxManager, maxRetries int, onRetry RetryObserver) TxManager {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryingTxManager{
		inner:      inner,
		maxRetries: maxRetries,
		onRetry:    onRetry,
	}
}

// WithTx executes fn inside a transaction, retrying on lock contention.
func (m *retryingTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = m.inner.WithTx(ctx, fn)
		if err == nil || !IsBusy(err) || attempt >= m.maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.onRetry != nil {
			m.onRetry(ctx, attempt+1)
		}
	}
}
