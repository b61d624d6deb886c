// Package booking implements the reservation consistency core: capacity
// admission, gap-free queue position assignment, withdrawal with
// renumbering, and the two-step token check-in. Every mutating flow
// runs as one transaction that first takes an exclusive lock on the
// partition's slot window row, so capacity checks, position reads and
// renumbering on one (organization, date, window) partition are
// serialized with respect to each other while unrelated partitions stay
// fully independent.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// mysqlDeadlock and mysqlLockWait are the two server errors InnoDB
// raises when a transaction loses a lock conflict. Both mean the unit
// of work did not happen and is safe to run again from the top.
const (
	mysqlDeadlock = 1213
	mysqlLockWait = 1205
)

func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWait
	}
	return false
}

// storageErr classifies an unexpected store failure. The original
// error stays in the chain so isRetryable can still recognize lock
// conflicts, but callers match on repository.ErrStorage.
func storageErr(err error) error {
	return fmt.Errorf("%w: %w", repository.ErrStorage, err)
}

// runInTx executes fn inside a transaction and commits it when fn
// returns nil, rolling back otherwise. Lock-conflict failures are
// retried up to maxRetries times; each retry re-runs fn from the top
// against a fresh transaction, so fn must not carry state across
// attempts. Domain sentinels returned by fn pass through unchanged and
// are never retried.
func runInTx(ctx context.Context, db *sql.DB, maxRetries int, fn func(tx *sql.Tx) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	for attempt := 0; ; attempt++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr(err)
		}
		err = fn(tx)
		if err == nil {
			err = tx.Commit()
			if err == nil {
				return nil
			}
			err = storageErr(err)
		} else {
			_ = tx.Rollback()
		}
		if isRetryable(err) && attempt < maxRetries {
			continue
		}
		return err
	}
}
