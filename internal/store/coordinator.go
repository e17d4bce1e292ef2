package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmvelichko/refsync/internal/logger"
)

// WriteRequest is one unit of mutation executed inside a coordinator
// transaction. Process must confine all writes to tx so rollback leaves
// no partial state visible.
type WriteRequest interface {
	Process(ctx context.Context, tx *sql.Tx) error
}

// ReadRequest is a read executed outside any transaction.
type ReadRequest interface {
	Process(ctx context.Context, db *sql.DB) error

	// Refresh requests that the coordinator resynchronize the
	// connection's view with the latest committed state before reading,
	// avoiding stale reads right after another connection committed.
	Refresh() bool
}

// Coordinator serializes all mutating access to the local store. Writes
// are serialized by SQLite's own transaction lock; the coordinator adds
// transaction scoping, guaranteed release on every exit path, and
// reentrancy detection.
type Coordinator struct {
	db     *DB
	logger *logger.Logger
}

// NewCoordinator constructs a Coordinator over db.
func NewCoordinator(db *DB, log *logger.Logger) *Coordinator {
	return &Coordinator{db: db, logger: log}
}

type txContextKey struct{}

// txFromContext recovers the transaction a surrounding PerformWriteBatch
// opened, if any. Used for reentrancy detection.
func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx
}

// PerformWrite executes a single request inside one atomic transaction.
// On failure the transaction is rolled back and the error surfaces to
// the caller untouched.
func (c *Coordinator) PerformWrite(ctx context.Context, req WriteRequest) error {
	return c.PerformWriteBatch(ctx, req)
}

// PerformWriteBatch executes all requests within one transaction.
//
// If the batch is issued from inside an already-running request on this
// coordinator (the open transaction travels in ctx), the coordinator
// degrades to sequential best-effort execution within the existing
// transaction instead of deadlocking on the engine's write lock. This is
// a defensive fallback and is logged as an anomaly.
func (c *Coordinator) PerformWriteBatch(ctx context.Context, reqs ...WriteRequest) (err error) {
	if len(reqs) == 0 {
		return fmt.Errorf("%w: empty write batch", ErrInvalidRequest)
	}

	if outer := txFromContext(ctx); outer != nil {
		c.logger.Warn().Msg("reentrant write batch; executing inside the open transaction")
		for _, req := range reqs {
			if reqErr := req.Process(ctx, outer); reqErr != nil {
				return reqErr
			}
		}
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write transaction: %w", err)
	}

	// Release the transaction on every exit path, panics included.
	// Rollback after a successful commit is a no-op.
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txCtx := context.WithValue(ctx, txContextKey{}, tx)
	for _, req := range reqs {
		if err = req.Process(txCtx, tx); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit write transaction: %w", err)
	}

	return nil
}

// PerformRead executes a read request outside any transaction. Reads may
// run concurrently with each other and with a writer.
func (c *Coordinator) PerformRead(ctx context.Context, req ReadRequest) error {
	if req.Refresh() {
		// Move any pending WAL frames into the main database file so this
		// connection observes the latest committed state.
		if _, err := c.db.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
			c.logger.Warn().Err(err).Msg("read refresh checkpoint failed")
		}
	}

	return req.Process(ctx, c.db.DB)
}
