package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/server/models"
)

// PostgresRepository implements the user repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, password_salt, role, active, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.PasswordSalt,
		string(user.Role), user.Active, user.Audit.CreatedAt, user.Audit.CreatedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, password_salt, role, active,
		       created_at, created_by, modified_at, modified_by
		FROM users
		WHERE username = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, password_salt, role, active,
		       created_at, created_by, modified_at, modified_by
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id string, actor string) error {
	query := `
		UPDATE users
		SET active = FALSE, modified_at = $2, modified_by = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC(), actor)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var modifiedAt sql.NullTime
	var modifiedBy sql.NullString

	err := row.Scan(&user.ID, &user.Username, &user.Email,
		&user.PasswordHash, &user.PasswordSalt, &role, &user.Active,
		&user.Audit.CreatedAt, &user.Audit.CreatedBy, &modifiedAt, &modifiedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	if modifiedAt.Valid {
		t := modifiedAt.Time
		user.Audit.ModifiedAt = &t
	}
	user.Audit.ModifiedBy = modifiedBy.String
	return user, nil
}
