package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the access level granted to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a string onto a known Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is an identity record. Username and email are unique and immutable
// after creation; the password hash and salt never leave the hashing layer
// in decoded form. Active means "account enabled" and is unrelated to any
// soft-delete bookkeeping.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	PasswordSalt string
	Role         Role
	Active       bool
	Audit        Audit
}

// NewUser builds an active user with a fresh id and audit stamp.
func NewUser(username, email, passwordHash, passwordSalt string, role Role, actor string) *User {
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
		Role:         role,
		Active:       true,
		Audit:        NewAudit(actor),
	}
}

// Deactivate disables the account. Users are never hard-deleted.
func (u *User) Deactivate(actor string) {
	u.Active = false
	u.Audit.Touch(actor)
}

func (u *User) String() string { return u.Username }
