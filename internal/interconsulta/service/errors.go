package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrTokenExpired       = errors.New("token_expired")
	ErrTokenInvalid       = errors.New("token_invalid")

	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not_found")

	// ErrConcurrentModification reports that the request changed between the
	// caller's read and their write; the caller should re-read and retry.
	ErrConcurrentModification = errors.New("concurrent_modification")
)

// ValidationError carries the offending field so handlers can echo it back.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
