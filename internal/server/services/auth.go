// Package services contains the server-side business logic. This file
// implements AuthService, which handles registration, login, refresh token
// rotation and account deactivation on top of the transactional executor.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/logging"
	"github.com/emsuite/authcore/internal/server/auth"
	"github.com/emsuite/authcore/internal/server/config"
	"github.com/emsuite/authcore/internal/server/hashing"
	"github.com/emsuite/authcore/internal/server/models"
	"github.com/emsuite/authcore/internal/server/repositories/repomanager"
	"github.com/emsuite/authcore/internal/server/txn"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
)

// TokenPair bundles a short-lived signed access token and a long-lived raw
// refresh token.
type TokenPair struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
}

// Registration is the input of AuthService.Register.
type Registration struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

func (r Registration) String() string { return r.Username }

// AuthService composes the hasher, the signer, the token store and the
// transactional executor into the login, registration and refresh flows.
// Failures carry the sentinel taxonomy from the common package; in
// particular every credential failure resolves to ErrUnauthorized with no
// distinguishing detail.
type AuthService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	signer   *auth.Signer
	tokens   *TokenStore
	executor *txn.Executor
	logger   logging.Logger
}

// NewAuthService constructs an AuthService from server configuration.
func NewAuthService(db *sql.DB, rm repomanager.RepositoryManager, signer *auth.Signer,
	executor *txn.Executor, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:       db,
		rm:       rm,
		signer:   signer,
		tokens:   NewTokenStore(rm, cfg.RefreshTokenTTL),
		executor: executor,
		logger:   logger.With("module", "auth_service"),
	}
}

// registrationRules returns the validation chain for Register. Uniqueness
// conflicts surface as rule failures tagged common.ErrConflict instead of
// raw store exceptions.
func (s *AuthService) registrationRules() []txn.Rule[Registration] {
	return []txn.Rule[Registration]{
		{
			Name:     "username length",
			Critical: true,
			Check: func(ctx context.Context, r Registration) error {
				if len(r.Username) < minUsernameLength {
					return fmt.Errorf("username must be at least %d characters", minUsernameLength)
				}
				return nil
			},
			Dependent: []txn.Rule[Registration]{{
				Name: "username unique",
				Check: func(ctx context.Context, r Registration) error {
					taken, err := s.rm.Users(s.db).UsernameTaken(ctx, r.Username)
					if err != nil {
						return err
					}
					if taken {
						return fmt.Errorf("username: %w", common.ErrConflict)
					}
					return nil
				},
			}},
		},
		{
			Name:     "email format",
			Critical: true,
			Check: func(ctx context.Context, r Registration) error {
				if _, err := mail.ParseAddress(r.Email); err != nil {
					return errors.New("email address is not valid")
				}
				return nil
			},
			Dependent: []txn.Rule[Registration]{{
				Name: "email unique",
				Check: func(ctx context.Context, r Registration) error {
					taken, err := s.rm.Users(s.db).EmailTaken(ctx, r.Email)
					if err != nil {
						return err
					}
					if taken {
						return fmt.Errorf("email: %w", common.ErrConflict)
					}
					return nil
				},
			}},
		},
		{
			Name: "password length",
			Check: func(ctx context.Context, r Registration) error {
				if len(r.Password) < minPasswordLength {
					return fmt.Errorf("password must be at least %d characters", minPasswordLength)
				}
				return nil
			},
		},
		{
			Name: "role known",
			Check: func(ctx context.Context, r Registration) error {
				if r.Role == "" {
					return nil
				}
				_, err := models.ParseRole(string(r.Role))
				return err
			},
		},
	}
}

// Register validates the registration, hashes the password and persists the
// new user. An empty role defaults to RoleUser. Duplicate username or email
// yields an error matching common.ErrConflict.
func (s *AuthService) Register(ctx context.Context, reg Registration, actor string) (*models.User, error) {
	if reg.Role == "" {
		reg.Role = models.RoleUser
	}

	var user *models.User
	result := s.executor.Begin(ctx).
		Validate(func(ctx context.Context) *txn.ValidationResult {
			return txn.Validate(ctx, "registration", reg, s.registrationRules())
		}).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			hash, salt := hashing.CreatePasswordHash(reg.Password)
			user = models.NewUser(reg.Username, reg.Email, hash, salt, reg.Role, actor)
			return s.rm.Users(tx).Create(ctx, user)
		}, "user registered", "user registration failed").
		Result()

	if !result.Successful() {
		return nil, result.Err()
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the credentials and, on success, issues an access token and
// persists a refresh token in one committed transaction. Unknown username,
// wrong password and an inactive account all resolve to the same
// ErrUnauthorized outcome.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.rm.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	if !user.Active || !hashing.VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		return nil, common.ErrUnauthorized
	}

	return s.issuePair(ctx, user, "login")
}

// Refresh resolves the raw refresh token and rotates it: the old token is
// consumed and a new pair is issued inside one transaction. Unknown, revoked
// and expired tokens resolve uniformly to ErrUnauthorized. The validity read
// is only a fast path; the commit consumes the token atomically, so of two
// concurrent refreshes of one raw token at most one mints a new pair and the
// loser is rejected.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	token, user, err := s.tokens.FindUser(ctx, s.db, rawToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}
	if !token.Valid(time.Now()) || !user.Active {
		return nil, common.ErrUnauthorized
	}

	signed, err := s.signer.Issue(user)
	if err != nil {
		return nil, common.ErrInternal
	}

	var raw string
	result := s.executor.Begin(ctx).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			consumed, err := s.tokens.Consume(ctx, tx, rawToken, user.Username)
			if err != nil {
				return err
			}
			if !consumed {
				return common.ErrUnauthorized
			}
			raw, _, err = s.tokens.Issue(ctx, tx, user, user.Username)
			return err
		}, "refresh token rotated", "refresh token rotation failed").
		Result()

	if !result.Successful() {
		if errors.Is(result.Err(), common.ErrUnauthorized) {
			return nil, common.ErrUnauthorized
		}
		return nil, result.Err()
	}

	return &TokenPair{AccessToken: signed.Value, ExpiresAt: signed.ExpiresAt, RefreshToken: raw}, nil
}

// Logout revokes the refresh token behind the raw value. Revoking an
// unknown or already revoked token succeeds silently.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	result := s.executor.Begin(ctx).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			return s.tokens.Revoke(ctx, tx, rawToken, "logout")
		}, "refresh token revoked", "refresh token revocation failed").
		Result()
	return result.Err()
}

// Deactivate disables the account and revokes all of its live refresh
// tokens in one transaction. The account row itself is retained.
func (s *AuthService) Deactivate(ctx context.Context, userID string, actor string) error {
	result := s.executor.Begin(ctx).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.rm.Users(tx).Deactivate(ctx, userID, actor); err != nil {
				return err
			}
			return s.tokens.RevokeAllForUser(ctx, tx, userID, actor)
		}, "user deactivated", "user deactivation failed").
		Result()

	if !result.Successful() {
		return result.Err()
	}

	s.logger.Info(ctx, "user deactivated", "user_id", userID, "actor", actor)
	return nil
}

// issuePair signs an access token and commits a new refresh token row.
func (s *AuthService) issuePair(ctx context.Context, user *models.User, actor string) (*TokenPair, error) {
	signed, err := s.signer.Issue(user)
	if err != nil {
		return nil, common.ErrInternal
	}

	var raw string
	result := s.executor.Begin(ctx).
		Commit(func(ctx context.Context, tx dbx.DBTX) error {
			raw, _, err = s.tokens.Issue(ctx, tx, user, actor)
			return err
		}, "refresh token issued", "refresh token issuance failed").
		Result()

	if !result.Successful() {
		return nil, result.Err()
	}

	return &TokenPair{AccessToken: signed.Value, ExpiresAt: signed.ExpiresAt, RefreshToken: raw}, nil
}
