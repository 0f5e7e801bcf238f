// Package models defines the persistent entities of the credential subsystem.
package models

import "time"

// Audit carries the who/when bookkeeping shared by persisted entities.
// It is embedded by value; there is no entity base type.
type Audit struct {
	CreatedAt  time.Time
	CreatedBy  string
	ModifiedAt *time.Time
	ModifiedBy string
}

// NewAudit stamps a fresh audit record for the given actor.
func NewAudit(actor string) Audit {
	return Audit{CreatedAt: time.Now().UTC(), CreatedBy: actor}
}

// Touch records a modification by the given actor.
func (a *Audit) Touch(actor string) {
	now := time.Now().UTC()
	a.ModifiedAt = &now
	a.ModifiedBy = actor
}
