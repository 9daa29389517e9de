/*
store.go - Persistence interfaces for the HR and Payroll stores

PURPOSE:
  Defines the boundary between reconciliation logic and the databases.
  The engine only ever reads HR and only ever writes Payroll, and the
  interfaces are split the same way.

KEY INTERFACES:
  AuthoritativeReader: Read-only HR access used by the engine
  Directory:           AuthoritativeReader plus listing queries for the API
  MirrorStore:         Payroll reads and transaction entry point
  MirrorTx:            Staged Payroll writes, committed once

TRANSACTION CONTRACT:
  All Payroll writes of one sync call go through a single MirrorTx.
  Reads through the MirrorTx see earlier staged writes. Savepoints let
  the caller discard one employee's writes without losing the others.
  Commit is all-or-nothing; after Commit or Rollback every method
  returns ErrTxDone.

NOT FOUND:
  Get* methods return (nil, nil) when the row does not exist. Errors are
  reserved for store failures.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite stores
  - hr/store:     In-memory stores for tests

SEE ALSO:
  - reconcile/engine.go: The only writer of MirrorTx
*/
package hr

import "context"

// =============================================================================
// HR (AUTHORITATIVE) STORE
// =============================================================================

// AuthoritativeReader is the read-only view of HR used by the engine.
type AuthoritativeReader interface {
	// ListEmployees returns every employee ordered by ID, with
	// DepartmentName and PositionName resolved.
	ListEmployees(ctx context.Context) ([]Employee, error)

	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)
	GetPosition(ctx context.Context, id PositionID) (*Position, error)
}

// Directory adds the listing queries the dashboard needs.
type Directory interface {
	AuthoritativeReader

	ListDepartments(ctx context.Context) ([]DepartmentSummary, error)
	ListPositions(ctx context.Context) ([]Position, error)

	// ListDividends returns dividends, filtered to one employee when
	// employeeID is non-nil.
	ListDividends(ctx context.Context, employeeID *EmployeeID) ([]Dividend, error)
}

// =============================================================================
// PAYROLL (MIRROR) STORE
// =============================================================================

// MirrorStore is the Payroll store.
type MirrorStore interface {
	ListEmployees(ctx context.Context) ([]MirrorEmployee, error)
	GetEmployee(ctx context.Context, id EmployeeID) (*MirrorEmployee, error)

	// Begin opens the transaction all writes of one sync call share.
	Begin(ctx context.Context) (MirrorTx, error)
}

// MirrorTx stages Payroll writes until Commit.
type MirrorTx interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*MirrorEmployee, error)
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)
	GetPosition(ctx context.Context, id PositionID) (*Position, error)

	// PutEmployee inserts or replaces the mirror row with e.ID.
	PutEmployee(ctx context.Context, e MirrorEmployee) error
	PutDepartment(ctx context.Context, d Department) error
	PutPosition(ctx context.Context, p Position) error

	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	Commit() error

	// Rollback discards staged writes. Calling it after Commit is a no-op.
	Rollback() error
}

// =============================================================================
// HEALTH
// =============================================================================

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
