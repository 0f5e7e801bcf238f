// Package auth builds and verifies the signed access tokens issued by the
// server. Tokens are stateless: validity is determined entirely by the
// signature and the embedded expiry, nothing is persisted here.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/server/config"
	"github.com/emsuite/authcore/internal/server/models"
)

// minKeyBytes is the smallest acceptable HMAC key (256 bits).
const minKeyBytes = 32

// Claims carries the identity claims stamped into every access token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// SignedToken is a compact signed access token plus its expiry instant.
type SignedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Signer mints HS256 access tokens. The signing key, issuer, audience and
// TTL are process-wide configuration loaded once at startup; a Signer is
// immutable and safe for concurrent use.
type Signer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewSigner validates the configured signing key and constructs a Signer.
// A missing or weak key is a configuration error: tokens are never issued
// silently with a key below the strength floor.
func NewSigner(cfg *config.Config) (*Signer, error) {
	if len(cfg.SigningKey) < minKeyBytes {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d",
			common.ErrWeakSigningKey, minKeyBytes, len(cfg.SigningKey))
	}
	return &Signer{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTokenTTL,
	}, nil
}

// Issue signs an access token for the given user, valid for the configured TTL.
func (s *Signer) Issue(user *models.User) (*SignedToken, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})

	value, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	return &SignedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// Parse verifies a token string and returns its claims. Expired tokens yield
// common.ErrTokenExpired; any other defect yields common.ErrInvalidToken.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
