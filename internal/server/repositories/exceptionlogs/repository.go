// Package exceptionlogs declares the repository contract for the capped
// failure journal.
package exceptionlogs

import (
	"context"

	"github.com/emsuite/authcore/internal/server/models"
)

// Repository defines operations for writing and trimming exception log rows.
type Repository interface {
	// Insert appends one row to the journal.
	Insert(ctx context.Context, entry *models.ExceptionLog) error

	// EvictOldest deletes the oldest rows so that at most keep rows remain.
	EvictOldest(ctx context.Context, keep int) error

	// Count returns the number of rows currently in the journal.
	Count(ctx context.Context) (int64, error)
}
