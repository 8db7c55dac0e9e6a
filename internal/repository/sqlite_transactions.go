package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
)

// WithTransaction runs fn against a repository bound to one transaction,
// retrying the whole unit on transient failures. Nested calls join the
// outer transaction.
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(repo StateRepository) error) error {
	if r.inTx {
		return fn(r)
	}

	start := time.Now()
	err := repoerrors.WithRetryNamed(ctx, r.retryConfig, "WithTransaction", func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return r.transactionError("WithTransaction.Begin", err)
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Debug("Failed to rollback transaction", "rollback_error", rbErr)
			}
		}()

		txRepo := &SQLiteRepository{
			db:          r.db,
			queries:     r.queries.WithTx(tx),
			dbService:   r.dbService,
			retryConfig: &repoerrors.RetryConfig{MaxAttempts: 1},
			logger:      r.logger,
			inTx:        true,
		}

		if err := fn(txRepo); err != nil {
			r.logger.Debug("Transaction function failed", "error", err)
			return err
		}

		if err := tx.Commit(); err != nil {
			return r.transactionError("WithTransaction.Commit", err)
		}
		committed = true
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "WithTransaction", time.Since(start), nil)
	}
	return err
}

func (r *SQLiteRepository) transactionError(op string, err error) error {
	repoErr := repoerrors.NewRepositoryError(op, err, repoerrors.ClassifyError(err))
	if repoErr.IsRetryable() {
		r.logger.Debug("Retryable transaction error", "op", op, "error", err)
	} else {
		logging.LogError(r.logger, repoErr, op, nil)
	}
	return repoErr
}
