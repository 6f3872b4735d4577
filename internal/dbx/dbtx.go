// Package dbx holds the database/sql helpers shared by the repositories.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so a repository built on
// it works inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx DBTX) error

// Runner runs a TxFunc in a fresh transaction.
type Runner func(ctx context.Context, fn TxFunc) error

// WithTx runs fn inside a transaction on db. It commits when fn returns nil
// and rolls back otherwise; a panic in fn rolls back and keeps unwinding.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NewRunner binds WithTx to db and opts.
func NewRunner(db *sql.DB, opts *sql.TxOptions) Runner {
	return func(ctx context.Context, fn TxFunc) error {
		return WithTx(ctx, db, opts, fn)
	}
}
