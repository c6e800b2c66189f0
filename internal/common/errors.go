// Package common defines shared sentinel errors used across the service
// layers. Callers should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrorDuplicate = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Login orchestration errors.
	ErrorAccountLocked          = errors.New("account locked")
	ErrorInvalidCurrentPassword = errors.New("current password mismatch")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)

// InvalidCredentialsError reports a failed credential check together with the
// number of attempts left before the account is locked. It is a distinct type
// so the login flow can branch on the outcome instead of parsing error text.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid login details, %d attempts left", e.RemainingAttempts)
}
