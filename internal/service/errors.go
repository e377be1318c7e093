package service

import (
	"errors"
	"fmt"

	"github.com/Niamh518/Dandi-curser-project/internal/store"
)

var (
	ErrMissingCredential  = errors.New("api key is required")
	ErrInvalidCredential  = errors.New("invalid api key")
	ErrInactiveCredential = errors.New("api key is inactive")
	ErrNotFound           = errors.New("not found")
	ErrInvalidSession     = errors.New("invalid session")
)

// IsCredentialError reports whether err means the caller failed API key
// authentication. Invalid and inactive keys are deliberately grouped so
// callers can answer both the same way.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrInactiveCredential)
}

// ValidationError reports caller input that was rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// UpstreamError wraps a failure from an external provider such as the
// language model API.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Provider, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

// storeErr classifies an error returned by the store for operation op.
func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StoreError{Op: op, Err: err}
}
