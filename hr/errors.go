/*
errors.go - Centralized error types for the HR domain

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these with context and inspect them with errors.Is/As.

ERROR CATEGORIES:
  1. Lookup errors - A requested employee does not exist
  2. Store errors - Connectivity and transaction failures
  3. Request errors - Invalid caller input

SEE ALSO:
  - reconcile/engine.go: Converts these into per-employee outcomes
  - api/handlers.go: Maps these to HTTP status codes
*/
package hr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when an employee is missing from HR.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrStoreUnavailable is returned when a store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCommitFailed is returned when the Payroll transaction cannot commit.
	ErrCommitFailed = errors.New("commit failed")

	// ErrTxDone is returned by a MirrorTx used after Commit or Rollback.
	ErrTxDone = errors.New("transaction already finished")

	// ErrEmptyRequest is returned when a sync request names no employees.
	ErrEmptyRequest = errors.New("employee id list cannot be empty")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing employee and the store it was expected in.
type NotFoundError struct {
	ID    EmployeeID
	Store string // "authoritative", "mirror"
}

func (e *NotFoundError) Error() string {
	if e.Store == "" {
		return fmt.Sprintf("employee %d not found", e.ID)
	}
	return fmt.Sprintf("employee %d not found in %s system", e.ID, e.Store)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// EmployeeNotFound builds the error for an employee missing from HR.
func EmployeeNotFound(id EmployeeID) error {
	return &NotFoundError{ID: id, Store: "authoritative"}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyRequest)
}
