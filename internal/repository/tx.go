package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL error numbers for serialization failures that are safe to retry
// once the transaction has been rolled back.
const (
	mysqlErrLockDeadlock = 1213 // ER_LOCK_DEADLOCK
	mysqlErrLockWait     = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlErrDupEntry     = 1062 // ER_DUP_ENTRY
)

// isDuplicate reports whether err is a unique-key violation.  Repos
// translate these into ErrConflict so handlers never inspect driver
// errors.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDupEntry
}

// retryable reports whether err is a storage-level conflict worth one
// retry.  Anything else surfaces to the caller unchanged.
func retryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrLockDeadlock || me.Number == mysqlErrLockWait
	}
	return false
}

// WithTx runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise.  Concurrent read-modify-write operations
// on the same seat counter or loyalty balance can deadlock under row
// locking; such conflicts are retried exactly once with a fresh
// transaction before the error is surfaced.  fn must be safe to run
// twice.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	err := runTx(ctx, db, fn)
	if err != nil && retryable(err) {
		err = runTx(ctx, db, fn)
	}
	return err
}

func runTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
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
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
