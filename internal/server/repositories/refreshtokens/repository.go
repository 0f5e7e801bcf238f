// Package refreshtokens declares the server-side repository contract for
// persisting refresh tokens. Only token hashes ever reach this layer.
package refreshtokens

import (
	"context"

	"github.com/emsuite/authcore/internal/server/models"
)

// Repository defines operations for issuing, retrieving and revoking
// refresh tokens. Rows are never deleted; revocation is the only mutation.
type Repository interface {
	// Create stores a new refresh token row. The caller assigns the id.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByHash returns the token row with the given hash.
	// Returns a not-found error when the hash is unknown.
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)

	// FindWithUser returns the token row with the given hash together with
	// its owning user. Returns a not-found error when the hash is unknown.
	FindWithUser(ctx context.Context, hash string) (*models.RefreshToken, *models.User, error)

	// Revoke marks the token with the given hash as revoked. Revoking an
	// already revoked or unknown token is not an error.
	Revoke(ctx context.Context, hash string, actor string) error

	// Consume atomically revokes the live token with the given hash and
	// reports whether this call flipped it. Of two concurrent consumers of
	// one token at most one observes true; an unknown or already revoked
	// token yields false.
	Consume(ctx context.Context, hash string, actor string) (bool, error)

	// RevokeAllForUser revokes every live token owned by the given user.
	RevokeAllForUser(ctx context.Context, userID string, actor string) error
}
