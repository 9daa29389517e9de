/*
Package hr provides the domain values shared by the HR and Payroll stores.

PURPOSE:
  The HR store is the source of truth for employees and their lookup
  entities (departments, positions). The Payroll store keeps a mirror of
  a subset of those fields. This package defines both shapes, the
  identity types that link them, and the store interfaces the
  reconciliation engine is written against.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID/DepartmentID/PositionID: Identities shared by both stores
  - Employee: The authoritative HR record
  - MirrorEmployee: The Payroll copy of an employee
  - Department/Position: Lookup entities, copied lazily into Payroll
  - Dividend: HR-only payout records

DESIGN PRINCIPLES:
  1. Identity is never remapped: a mirror row uses the HR identity
  2. Nullable references are pointers, so "unassigned" is distinct from 0
  3. Values are plain structs; stores return copies, never live rows

SEE ALSO:
  - store.go: Store interfaces
  - errors.go: Sentinel and structured errors
  - reconcile/: Drift detection and sync execution
*/
package hr

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTITIES
// =============================================================================

// EmployeeID identifies an employee in both stores.
type EmployeeID int

// DepartmentID identifies a department in both stores.
type DepartmentID int

// PositionID identifies a position in both stores.
type PositionID int

func (id EmployeeID) String() string   { return strconv.Itoa(int(id)) }
func (id DepartmentID) String() string { return strconv.Itoa(int(id)) }
func (id PositionID) String() string   { return strconv.Itoa(int(id)) }

// DeptRef returns a department reference for id.
func DeptRef(id DepartmentID) *DepartmentID { return &id }

// PosRef returns a position reference for id.
func PosRef(id PositionID) *PositionID { return &id }

// =============================================================================
// EMPLOYMENT STATUS
// =============================================================================

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// Employee is the authoritative HR record.
// DepartmentName and PositionName are resolved by the store on read and
// are empty when the reference is nil or dangling.
type Employee struct {
	ID           EmployeeID
	FullName     string
	DateOfBirth  time.Time
	Gender       string
	PhoneNumber  string
	Email        string
	HireDate     time.Time
	DepartmentID *DepartmentID
	PositionID   *PositionID
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	DepartmentName string
	PositionName   string
}

// MirrorEmployee is the Payroll copy of an employee.
// Every field except SyncedAt converges to the HR value.
type MirrorEmployee struct {
	ID           EmployeeID
	FullName     string
	DepartmentID *DepartmentID
	PositionID   *PositionID
	Status       string
	SyncedAt     time.Time
}

// =============================================================================
// LOOKUP ENTITIES
// =============================================================================

// Department is a department row. SyncedAt is only set on Payroll copies.
type Department struct {
	ID       DepartmentID
	Name     string
	SyncedAt time.Time
}

// DepartmentSummary is a department with its HR headcount.
type DepartmentSummary struct {
	Department
	EmployeeCount int
}

// Position is a position row. SyncedAt is only set on Payroll copies.
type Position struct {
	ID       PositionID
	Name     string
	SyncedAt time.Time
}

// =============================================================================
// DIVIDENDS
// =============================================================================

// Dividend is a payout recorded in HR. Amount is exact decimal.
type Dividend struct {
	ID           int
	EmployeeID   EmployeeID
	EmployeeName string
	Amount       decimal.Decimal
	Date         time.Time
	CreatedAt    time.Time
}
