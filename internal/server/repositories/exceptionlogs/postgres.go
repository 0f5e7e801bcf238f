package exceptionlogs

import (
	"context"
	"fmt"

	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/server/models"
)

// PostgresRepository implements the exception log repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *models.ExceptionLog) error {
	query := `
		INSERT INTO exception_logs (ts, message, file_name, line_number, status_code)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.Timestamp, entry.Message, entry.FileName, entry.LineNumber, entry.StatusCode)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) EvictOldest(ctx context.Context, keep int) error {
	query := `
		DELETE FROM exception_logs
		WHERE id NOT IN (SELECT id FROM exception_logs ORDER BY id DESC LIMIT $1)
	`
	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exception_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
