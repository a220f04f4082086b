package triage

import (
	"errors"
	"fmt"
)

// ErrAnalysisInProgress is returned by Reanalyze while a previous analysis
// of the same complaint has not resolved yet.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// ValidationError rejects a malformed draft or field edit before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// AuthorizationError rejects a mutation from a caller without the required
// session. The operation has no effect and writes no audit entry.
type AuthorizationError struct {
	Op     string
	Reason string
	// Authenticated is true when a session was present but its role was insufficient.
	Authenticated bool
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s not authorized: %s", e.Op, e.Reason)
}

// PersistenceError wraps a store failure. Callers must not assume any part of
// the mutation was applied.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsAuthorization reports whether err is an *AuthorizationError.
func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

// IsPersistence reports whether err is a *PersistenceError.
func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
