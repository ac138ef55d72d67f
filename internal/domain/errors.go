package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across the store and service layers. Not-found,
// expired, already-claimed and wrong-passphrase conditions all collapse into
// the same generic errors so an unauthenticated caller learns nothing about
// which precondition failed.
var (
	// ErrSecretNotFound covers missing, expired and lost-race secrets, and
	// passphrase mismatches.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrRequestNotFound covers missing, expired and already-claimed requests.
	ErrRequestNotFound = errors.New("request not found")

	// ErrVerificationNotFound indicates no verification matches the given id,
	// or the record has expired.
	ErrVerificationNotFound = errors.New("verification failed")

	// ErrVerificationCodeMismatch indicates the supplied code is wrong.
	ErrVerificationCodeMismatch = errors.New("verification failed")

	// ErrEmailVerification indicates a verified token could not be consumed:
	// unknown token, email hash mismatch, or already spent.
	ErrEmailVerification = errors.New("email verification failed")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

// ValidationError reports malformed or missing input with field detail. It
// is surfaced directly to the caller.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Field != "" {
			parts = append(parts, fe.Field+": "+fe.Detail)
		} else {
			parts = append(parts, fe.Detail)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, detail string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Detail: detail}}}
}

// ConfigurationError indicates a programmer or deployment mistake, fatal at
// startup or construction time.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}
