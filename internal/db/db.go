// Package db is the hand-maintained data access layer. Each query file holds
// the SQL for one table group as const strings plus typed methods on Queries.
// Callers depend on the Querier interface so tests can substitute fakes;
// store wraps Queries in transactions via WithTx.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is satisfied by both *sql.DB and *sql.Tx, so the same Queries methods
// run inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries executes all SQL against the given DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to the pool (or any DBTX).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the transaction. The receiver is not
// modified.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Migrate applies the embedded schema. Every statement is idempotent
// (IF NOT EXISTS / CHECK-based enums), so calling it on every startup is
// safe.
func Migrate(ctx context.Context, pool *sql.DB) error {
	if _, err := pool.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
