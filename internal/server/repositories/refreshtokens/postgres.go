package refreshtokens

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

// PostgresRepository implements the refresh token repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.Revoked,
		token.Audit.CreatedAt, token.Audit.CreatedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at, created_by
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	token := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Revoked,
		&token.Audit.CreatedAt, &token.Audit.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) FindWithUser(ctx context.Context, hash string) (*models.RefreshToken, *models.User, error) {
	query := `
		SELECT t.id, t.user_id, t.token_hash, t.expires_at, t.revoked,
		       u.id, u.username, u.email, u.role, u.active
		FROM refresh_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1
	`
	token := &models.RefreshToken{}
	user := &models.User{}
	var role string
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Revoked,
		&user.ID, &user.Username, &user.Email, &role, &user.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, fmt.Errorf("db error: %w", err)
	}
	user.Role = models.Role(role)
	return token, user, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, hash string, actor string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, modified_at = $2, modified_by = $3
		WHERE token_hash = $1 AND revoked = FALSE
	`
	if _, err := r.db.ExecContext(ctx, query, hash, time.Now().UTC(), actor); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, hash string, actor string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, modified_at = $2, modified_by = $3
		WHERE token_hash = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, hash, time.Now().UTC(), actor)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, actor string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, modified_at = $2, modified_by = $3
		WHERE user_id = $1 AND revoked = FALSE
	`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC(), actor); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
