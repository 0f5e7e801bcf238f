package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/server/hashing"
	"github.com/emsuite/authcore/internal/server/models"
	"github.com/emsuite/authcore/internal/server/repositories/repomanager"
)

// rawTokenBytes is the entropy of a raw refresh token before hex encoding.
const rawTokenBytes = 32

// TokenStore issues and resolves refresh tokens. The raw token exists only
// in the return value of Issue; every lookup and persistence operation works
// on its one-way hash.
type TokenStore struct {
	rm       repomanager.RepositoryManager
	validity time.Duration
}

// NewTokenStore constructs a TokenStore issuing tokens valid for the given
// duration.
func NewTokenStore(rm repomanager.RepositoryManager, validity time.Duration) *TokenStore {
	return &TokenStore{rm: rm, validity: validity}
}

// Issue mints a fresh refresh token for the user and persists its hash
// through the given DBTX. It returns the raw token for the client and the
// stored row.
func (s *TokenStore) Issue(ctx context.Context, db dbx.DBTX, user *models.User, actor string) (string, *models.RefreshToken, error) {
	raw, err := common.MakeRandHexString(rawTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	token := models.NewRefreshToken(user.ID, hashing.HashToken(raw), time.Now().Add(s.validity), actor)
	if err := s.rm.RefreshTokens(db).Create(ctx, token); err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

// FindUser resolves a raw refresh token to its stored row and owning user.
// An unknown token yields common.ErrNotFound.
func (s *TokenStore) FindUser(ctx context.Context, db dbx.DBTX, raw string) (*models.RefreshToken, *models.User, error) {
	token, user, err := s.rm.RefreshTokens(db).FindWithUser(ctx, hashing.HashToken(raw))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	return token, user, nil
}

// Revoke marks the token behind the raw value as revoked. Revoking an
// unknown or already revoked token is a no-op.
func (s *TokenStore) Revoke(ctx context.Context, db dbx.DBTX, raw string, actor string) error {
	return s.rm.RefreshTokens(db).Revoke(ctx, hashing.HashToken(raw), actor)
}

// Consume revokes the token behind the raw value only if it is still live,
// reporting whether this caller won the flip. Rotation goes through Consume
// so two concurrent refreshes of one token serialize at the store: the
// loser sees false and must reject.
func (s *TokenStore) Consume(ctx context.Context, db dbx.DBTX, raw string, actor string) (bool, error) {
	return s.rm.RefreshTokens(db).Consume(ctx, hashing.HashToken(raw), actor)
}

// RevokeAllForUser revokes every live token the user holds.
func (s *TokenStore) RevokeAllForUser(ctx context.Context, db dbx.DBTX, userID string, actor string) error {
	return s.rm.RefreshTokens(db).RevokeAllForUser(ctx, userID, actor)
}
