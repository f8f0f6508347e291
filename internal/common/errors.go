// Package common defines shared constants, sentinel errors and small helpers
// used across the profilekeeper server and its tools. Callers should use
// errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// ErrorValidation is matched by every field-level validation failure,
	// including malformed national codes and dates.
	ErrorValidation = errors.New("validation error")

	// Token errors.
	ErrorInvalidToken = errors.New("invalid token")
	ErrorTokenExpired = errors.New("token expired")
	ErrorTokenRevoked = errors.New("token revoked")
)
