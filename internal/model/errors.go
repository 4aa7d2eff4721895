package model

import (
	"errors"
	"fmt"

	"go.trai.ch/zerr"
)

// Error taxonomy. The HTTP boundary maps these onto status codes; the service
// and store layers wrap them with context via zerr.Wrap.
var (
	// ErrNotFound is returned when a referenced task, user, or tag is absent.
	ErrNotFound = zerr.New("not found")

	// ErrPermission is returned when the caller is not the task's owner, or
	// when credentials fail verification.
	ErrPermission = zerr.New("permission denied")

	// ErrConflict is returned on a duplicate username at registration.
	ErrConflict = zerr.New("conflict")

	// ErrUpstream is returned on language-model or store-transport failures.
	ErrUpstream = zerr.New("upstream failure")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
