// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Artifact errors.
	ErrMissingArtifact = errors.New("missing artifact")
	ErrMissingColumn   = errors.New("missing column")
	ErrMalformedRow    = errors.New("malformed row")
	ErrEmptyDataset    = errors.New("empty dataset")

	// Modeling errors.
	ErrDegenerateInput = errors.New("degenerate input")
	ErrNotConverged    = errors.New("did not converge")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Ledger errors.
	ErrNotFound = errors.New("not found")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// MissingColumnError reports a required column absent from an artifact,
// naming both the column and the file it was expected in.
func MissingColumnError(column, path string) error {
	return fmt.Errorf("%w: %q in %s", ErrMissingColumn, column, path)
}

// MissingArtifactError reports an absent upstream artifact, naming the stage
// that produces it.
func MissingArtifactError(path, producedBy string) error {
	return fmt.Errorf("%w: %s (run %q first)", ErrMissingArtifact, path, producedBy)
}
