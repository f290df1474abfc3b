package services

import (
	"context"

	"github.com/upb/publish-guard/repositories"
)

// WithTransaction executes fn within a database transaction. Repositories
// called with the context handed to fn share the transaction. Commits on
// success, rolls back on error.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	return txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		return fn(txCtx)
	})
}

// WithTransactionResult is WithTransaction for functions that produce a value.
// The zero value is returned when the transaction fails.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		var err error
		result, err = fn(txCtx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
