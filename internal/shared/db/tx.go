package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/astalive/astalive/internal/shared/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// ErrTxRetriesExhausted reports that a transaction kept hitting transient
// store conflicts until the retry budget ran out. Callers map it to their
// own "unavailable" error; it never carries business meaning.
var ErrTxRetriesExhausted = errors.New("transaction retries exhausted")

// TxFn is the body of one transaction attempt. It must be safe to run more
// than once: every attempt re-reads whatever state it validates against.
type TxFn func(ctx context.Context, tx pgx.Tx) error

// Runner executes a function inside a database transaction. The concrete
// implementation retries transient conflicts; fakes in tests run the
// function directly.
type Runner interface {
	InTx(ctx context.Context, fn TxFn) error
}

// PoolRunner runs transactions on a pgx pool with a bounded retry budget
// for serialization failures and deadlocks. Each retry re-executes fn from
// scratch, so validation always happens against the freshest committed row.
type PoolRunner struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

func NewPoolRunner(pool *pgxpool.Pool, maxAttempts int) *PoolRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PoolRunner{pool: pool, maxAttempts: maxAttempts}
}

func (r *PoolRunner) InTx(ctx context.Context, fn TxFn) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		lastErr = err
		log.Warn("transient store conflict, retrying transaction",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", r.maxAttempts),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: %v", ErrTxRetriesExhausted, lastErr)
}

func (r *PoolRunner) runOnce(ctx context.Context, fn TxFn) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(ctx, tx)
	return err
}

// Retryable reports whether err is a transient conflict worth re-running
// the whole transaction for: serialization failure (40001) or deadlock
// detected (40P01).
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
