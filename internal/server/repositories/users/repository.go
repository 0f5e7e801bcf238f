// Package users declares the server-side repository contract for
// persisting user accounts.
package users

import (
	"context"

	"github.com/emsuite/authcore/internal/server/models"
)

// Repository defines operations for creating and retrieving user accounts.
// Accounts are never hard-deleted; deactivation is the only removal path.
type Repository interface {
	// Create persists a new user. The caller assigns the id.
	Create(ctx context.Context, user *models.User) error

	// GetByUsername returns the user with the given username.
	// Returns a not-found error when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns the user with the given id.
	// Returns a not-found error when no such user exists.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// UsernameTaken reports whether a user with the given username exists.
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// EmailTaken reports whether a user with the given email exists.
	EmailTaken(ctx context.Context, email string) (bool, error)

	// Deactivate disables the account with the given id and stamps the
	// modification. Returns a not-found error when no such user exists.
	Deactivate(ctx context.Context, id string, actor string) error
}
