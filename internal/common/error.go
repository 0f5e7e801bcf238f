// Package common defines shared constants, sentinel errors and small
// utilities used across authcore components. Callers should use errors.Is
// to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("already exists")

	// Validation errors. Individual rule failures are joined under this one.
	ErrValidation = errors.New("validation failed")

	// Configuration errors.
	ErrWeakSigningKey = errors.New("signing key missing or below minimum strength")

	// Transaction classification errors. ErrTransientStore marks store
	// failures that are worth another commit attempt; ErrInUse marks
	// referential conflicts that no amount of retrying can resolve.
	ErrTransientStore = errors.New("transient store failure")
	ErrInUse          = errors.New("record is in use by another process")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
