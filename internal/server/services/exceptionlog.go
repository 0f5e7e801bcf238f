package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/logging"
	"github.com/emsuite/authcore/internal/server/models"
	"github.com/emsuite/authcore/internal/server/repositories/repomanager"
	"github.com/emsuite/authcore/internal/server/txn"
)

// ExceptionJournal persists unhandled failure reports with a retention cap.
// Every write trims the journal so it never grows past the configured
// number of rows; the oldest rows go first.
type ExceptionJournal struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	executor *txn.Executor
	cap      int
	logger   logging.Logger
}

// NewExceptionJournal constructs a journal retaining at most cap rows.
// A cap below 1 disables eviction.
func NewExceptionJournal(db *sql.DB, rm repomanager.RepositoryManager, executor *txn.Executor,
	cap int, logger logging.Logger) *ExceptionJournal {
	return &ExceptionJournal{
		db:       db,
		rm:       rm,
		executor: executor,
		cap:      cap,
		logger:   logger.With("module", "exception_journal"),
	}
}

// Record appends a failure report and evicts rows beyond the cap in the
// same transaction. Journal failures are logged and swallowed so the
// journal can never take down the operation that was being reported.
func (j *ExceptionJournal) Record(ctx context.Context, message, fileName string, lineNumber, statusCode int) {
	entry := &models.ExceptionLog{
		Timestamp:  time.Now().UTC(),
		Message:    message,
		FileName:   fileName,
		LineNumber: lineNumber,
		StatusCode: statusCode,
	}

	result := j.executor.Begin(ctx).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			repo := j.rm.ExceptionLogs(tx)
			if err := repo.Insert(ctx, entry); err != nil {
				return err
			}
			if j.cap < 1 {
				return nil
			}
			return repo.EvictOldest(ctx, j.cap)
		}, "exception recorded", "exception journaling failed").
		Result()

	if !result.Successful() {
		j.logger.Error(ctx, "failed to journal exception",
			"message", message, "error", result.Err())
	}
}
