package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/logging"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:txn_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (id INTEGER PRIMARY KEY, token TEXT);`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	return n
}

func newExecutor(db *sql.DB, maxAttempts int) *Executor {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewExecutor(db, maxAttempts, time.Millisecond, logger)
}

func insertSession(ctx context.Context, tx dbx.DBTX) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sessions(token) VALUES ('t1')`)
	return err
}

func TestCommit_SucceedsFirstAttempt(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	result := e.Begin(context.Background()).
		Commit(insertSession, "session saved", "session save failed").
		Result()

	require.True(t, result.Successful())
	assert.Equal(t, "session saved", result.Message())
	assert.NoError(t, result.Err())
	assert.Equal(t, 1, countRows(t, db))
}

func TestCommit_RetriesTransientFailures(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		if err := insertSession(ctx, tx); err != nil {
			return err
		}
		if attempts < 3 {
			return fmt.Errorf("%w: connection reset", common.ErrTransientStore)
		}
		return nil
	}

	result := e.Begin(context.Background()).
		Commit(action, "session saved", "session save failed").
		Result()

	require.True(t, result.Successful())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, countRows(t, db), "failed attempts must be rolled back")
}

func TestCommit_StopsAtRetryCeiling(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		if err := insertSession(ctx, tx); err != nil {
			return err
		}
		return fmt.Errorf("%w: connection reset", common.ErrTransientStore)
	}

	result := e.Begin(context.Background()).
		Commit(action, "session saved", "session save failed").
		Result()

	require.False(t, result.Successful())
	assert.Equal(t, 3, attempts, "must stop after exactly maxAttempts attempts")
	assert.Equal(t, "session save failed", result.Message())
	assert.ErrorIs(t, result.Err(), common.ErrTransientStore)
	assert.Equal(t, 0, countRows(t, db))
}

func TestCommit_LogicErrorIsTerminal(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	errBroken := errors.New("invariant violated")
	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		if err := insertSession(ctx, tx); err != nil {
			return err
		}
		return errBroken
	}

	result := e.Begin(context.Background()).
		Commit(action, "session saved", "session save failed").
		Result()

	require.False(t, result.Successful())
	assert.Equal(t, 1, attempts, "logic errors must not be retried")
	assert.ErrorIs(t, result.Err(), errBroken)
	assert.Equal(t, 0, countRows(t, db), "must roll back before reporting")
}

func TestCommit_ForeignKeyViolationIsTerminal(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 5)

	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23503"})
	}

	result := e.Begin(context.Background()).
		Commit(action, "user deleted", "user delete failed").
		Result()

	require.False(t, result.Successful())
	assert.Equal(t, 1, attempts, "referential conflicts must not be retried")
	assert.ErrorIs(t, result.Err(), common.ErrInUse)
}

func TestCommit_UniqueViolationIsTerminal(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 5)

	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"})
	}

	result := e.Begin(context.Background()).
		Commit(action, "user saved", "user save failed").
		Result()

	require.False(t, result.Successful())
	assert.Equal(t, 1, attempts, "unique conflicts must not be retried")
	assert.ErrorIs(t, result.Err(), common.ErrConflict)
}

func TestCommit_OtherStoreErrorsAreRetried(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 2)

	attempts := 0
	action := func(ctx context.Context, tx dbx.DBTX) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "40001"})
		}
		return insertSession(ctx, tx)
	}

	result := e.Begin(context.Background()).
		Commit(action, "session saved", "session save failed").
		Result()

	require.True(t, result.Successful())
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, countRows(t, db))
}

func TestChain_FailedValidationSkipsLaterStages(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	executed := false
	committed := false

	result := e.Begin(context.Background()).
		Validate(func(ctx context.Context) *ValidationResult {
			vr := NewValidationResult("session")
			vr.Add(errors.New("token must not be empty"))
			return vr
		}).
		Execute(func(ctx context.Context) error {
			executed = true
			return nil
		}).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			committed = true
			return insertSession(ctx, tx)
		}, "session saved", "session save failed").
		Result()

	require.False(t, result.Successful())
	assert.False(t, executed, "Execute must be skipped after failed validation")
	assert.False(t, committed, "Commit must be skipped after failed validation")
	assert.ErrorIs(t, result.Err(), common.ErrValidation)
	assert.Equal(t, 0, countRows(t, db))
}

func TestChain_FailedExecuteSkipsCommit(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	errHook := errors.New("precondition failed")
	committed := false

	result := e.Begin(context.Background()).
		Execute(func(ctx context.Context) error { return errHook }).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			committed = true
			return insertSession(ctx, tx)
		}, "session saved", "session save failed").
		Result()

	require.False(t, result.Successful())
	assert.False(t, committed)
	assert.ErrorIs(t, result.Err(), errHook)
}

func TestValidateEach_InvalidEntityBlocksWholeBatch(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 3)

	rules := []Rule[record]{{
		Name:  "value must be positive",
		Check: func(ctx context.Context, r record) error { return requirePositive(r) },
	}}
	batch := []record{
		{name: "s1", value: 1},
		{name: "s2", value: 2},
		{name: "s3", value: -1},
		{name: "s4", value: 4},
		{name: "s5", value: 5},
	}

	committed := false
	chain := e.Begin(context.Background())
	result := ValidateEach(chain, "session", batch, rules).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			committed = true
			return insertSession(ctx, tx)
		}, "batch saved", "batch save failed").
		Result()

	require.False(t, result.Successful())
	assert.Contains(t, result.Err().Error(), "s3", "failure must name the invalid entity")
	assert.False(t, committed, "one invalid entity must block the whole batch")
	assert.Equal(t, 0, countRows(t, db))
}

func TestNewExecutor_ClampsAttemptFloor(t *testing.T) {
	db := setupDB(t)
	e := newExecutor(db, 0)

	attempts := 0
	result := e.Begin(context.Background()).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			attempts++
			return fmt.Errorf("%w: down", common.ErrTransientStore)
		}, "saved", "failed").
		Result()

	require.False(t, result.Successful())
	assert.Equal(t, 1, attempts)
}
