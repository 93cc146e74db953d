package store

import (
	"context"
	"database/sql"
	"fmt"
)

// rowCheckInterval is how many rows a bulk statement runs between context
// checks.
const rowCheckInterval = 50

// inTx runs fn in a transaction. The transaction is rolled back when fn
// fails or panics, and when ctx is done by the time fn returns, so a
// cancelled import never commits a partial batch.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit aborted: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// bulkOp is one prepared statement executed per item.
type bulkOp[T any] struct {
	query string

	// args returns the statement arguments of item. It may write
	// dependent rows, such as bounding boxes, through tx first.
	args func(tx *sql.Tx, item T) ([]any, error)

	// key names item in errors.
	key func(item T) string
}

// runBulk executes op for every item in one transaction.
func runBulk[T any](ctx context.Context, s *Store, items []T, op bulkOp[T]) error {
	if len(items) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, op.query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()

		for i, item := range items {
			if i > 0 && i%rowCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			args, err := op.args(tx, item)
			if err == nil {
				_, err = stmt.ExecContext(ctx, args...)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", op.key(item), err)
			}
		}
		return nil
	})
}
