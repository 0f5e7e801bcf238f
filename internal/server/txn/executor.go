package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/logging"
)

// Terminal SQLSTATEs: referential ("in use") and unique ("already exists")
// conflicts, which no amount of retrying can resolve.
const (
	sqlstateForeignKeyViolation = "23503"
	sqlstateUniqueViolation     = "23505"
)

const defaultBackoff = 50 * time.Millisecond

// Executor runs write pipelines against one database handle. The retry
// ceiling and backoff are static configuration; an Executor is immutable
// and safe for concurrent use.
type Executor struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
	logger      logging.Logger
}

// NewExecutor constructs an Executor. maxAttempts is the total number of
// commit attempts per pipeline (a value below 1 is treated as 1).
func NewExecutor(db *sql.DB, maxAttempts int, backoff time.Duration, logger logging.Logger) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Executor{
		db:          db,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger.With("module", "txn"),
	}
}

// Begin starts a new pipeline bound to the caller's context.
func (e *Executor) Begin(ctx context.Context) *Chain {
	return &Chain{e: e, ctx: ctx, result: Successful("")}
}

// Chain threads a Result through the pipeline stages. Once any stage fails,
// every subsequent step is a no-op and the chain carries the failure to the
// caller.
type Chain struct {
	e      *Executor
	ctx    context.Context
	result *Result
}

// Validate runs the validation stage. The supplied function typically wraps
// txn.Validate or txn.ValidateAll; a non-empty result fails the chain before
// any transaction is opened.
func (c *Chain) Validate(fn func(ctx context.Context) *ValidationResult) *Chain {
	if !c.result.Successful() {
		return c
	}
	if vr := fn(c.ctx); !vr.Successful() {
		err := vr.Err()
		c.result = Failed(err.Error(), err)
	}
	return c
}

// ValidateEach runs the batch validation stage on the chain. It is a free
// function because Go methods cannot carry type parameters.
func ValidateEach[T any](c *Chain, entityName string, entities []T, rules []Rule[T]) *Chain {
	return c.Validate(func(ctx context.Context) *ValidationResult {
		return ValidateAll(ctx, entityName, entities, rules)
	})
}

// Execute runs a pre-execution hook outside any transaction. A failure here
// aborts the pipeline without ever opening a transaction scope.
func (c *Chain) Execute(fn func(ctx context.Context) error) *Chain {
	if !c.result.Successful() {
		return c
	}
	if err := fn(c.ctx); err != nil {
		c.result = Failed(err.Error(), err)
	}
	return c
}

// Commit opens a transaction scope, invokes the write action and commits,
// retrying the whole stage on transient store failures up to the configured
// ceiling. Every failed attempt is rolled back before the next one starts,
// so no partial state from one attempt is visible to a later attempt.
// Cancellation is honored between attempts, never mid-attempt.
//
// Failure classification:
//   - referential and unique conflicts (SQLSTATE 23503 and 23505, or
//     anything wrapping common.ErrInUse or common.ErrConflict) are
//     terminal and reported without retry;
//   - other store errors (pgconn errors, or anything wrapping
//     common.ErrTransientStore) are retried;
//   - any remaining error is a defect in the write action itself and is
//     terminal after rollback.
func (c *Chain) Commit(action func(ctx context.Context, tx dbx.DBTX) error, successMessage, failureMessage string) *Chain {
	if !c.result.Successful() {
		return c
	}

	attempt := 0
	b := retry.WithMaxRetries(uint64(c.e.maxAttempts-1), retry.NewConstant(c.e.backoff))

	err := retry.Do(c.ctx, b, func(ctx context.Context) error {
		attempt++
		if err := dbx.WithTx(ctx, c.e.db, nil, action); err != nil {
			err = c.e.classify(err)
			if errors.Is(err, common.ErrTransientStore) {
				c.e.logger.Warn(ctx, "commit attempt failed, will retry",
					"attempt", attempt, "max_attempts", c.e.maxAttempts, "error", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		c.e.logger.Error(c.ctx, "transaction failed",
			"attempts", attempt, "error", err)
		c.result = Failed(failureMessage, err)
		return c
	}

	c.result = Successful(successMessage)
	return c
}

// Result finishes the pipeline and returns its outcome.
func (c *Chain) Result() *Result { return c.result }

// classify sorts a commit-stage error into terminal or retryable. Errors
// already tagged with the classification sentinels keep their tag; raw
// Postgres errors are classified by SQLSTATE; everything else is treated as
// a logic defect and never retried.
func (e *Executor) classify(err error) error {
	switch {
	case errors.Is(err, common.ErrInUse):
		return err
	case errors.Is(err, common.ErrTransientStore):
		return retry.RetryableError(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateForeignKeyViolation:
			return fmt.Errorf("%w: %w", common.ErrInUse, err)
		case sqlstateUniqueViolation:
			return fmt.Errorf("%w: %w", common.ErrConflict, err)
		}
		return retry.RetryableError(fmt.Errorf("%w: %w", common.ErrTransientStore, err))
	}

	return err
}
