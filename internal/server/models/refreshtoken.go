package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one issued session-renewal credential. Only a one-way hash
// of the raw token is persisted; the raw value exists transiently at issue
// time and is otherwise held by the client. Rows are never deleted; the only
// mutation is flipping Revoked to true.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	Audit     Audit
}

// NewRefreshToken builds an unrevoked token record for the given owner.
func NewRefreshToken(userID, tokenHash string, expiresAt time.Time, actor string) *RefreshToken {
	return &RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		Audit:     NewAudit(actor),
	}
}

// Valid reports whether the token can still renew a session at the given time.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && !now.After(t.ExpiresAt)
}

// Revoke marks the token unusable. Revoking twice is a no-op.
func (t *RefreshToken) Revoke(actor string) {
	if t.Revoked {
		return
	}
	t.Revoked = true
	t.Audit.Touch(actor)
}
