// Package store wraps db.Querier with transaction support and groups the
// multi-step write operations that must execute atomically: scheduling an
// assessment with its reminders, issuing a send link, and the completion
// pipeline (redeem → score → classify → complete → plan recurrence).
//
// Single-query reads (GetAssessmentByID, GetAccessToken, etc.) should be
// called directly on db.Querier in handlers — there is no value in proxying
// them through this package.
//
// Dependency rule: store imports db and the pure domain packages (scoring,
// recurrence, reminder, token, assessment). It never imports api, worker, or
// notify.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unomed/psi-backend/internal/db"
)

// Store holds a *sql.DB for starting transactions and a db.Querier for
// executing queries outside of transactions.
type Store struct {
	pool *sql.DB
	q    db.Querier
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified before calling New.
func New(pool *sql.DB, q db.Querier) *Store {
	return &Store{pool: pool, q: q}
}

// Q exposes the underlying Querier so callers (handlers, worker) can run
// single-query reads without going through a store method.
func (s *Store) Q() db.Querier {
	return s.q
}

// txQuerier is a function that receives a transactional Querier and returns
// an error. Returning a non-nil error causes withTx to roll back.
type txQuerier func(ctx context.Context, q db.Querier) error

// withTx begins a transaction, passes a Querier scoped to that transaction to
// fn, and commits on success or rolls back on any error (including panics).
//
// Serializable isolation is the default because every multi-step write here
// is a read-then-write pattern (status guards, idempotency checks) that must
// not interleave with a concurrent writer.
func (s *Store) withTx(ctx context.Context, fn txQuerier) error {
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	// Roll back on panic so the connection is never left in a broken state.
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txQ := s.q.(*db.Queries).WithTx(tx)

	if err := fn(ctx, txQ); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}
