/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow
  the dashboard frontend, which reads PascalCase keys (EmployeeID,
  DepartmentName, SyncStatus, ...). Detection and execution reports are
  serialized straight from the reconcile package.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employees:   EmployeeListItemDTO, EmployeeDetailDTO
  Org:         DepartmentDTO, PositionDTO, OrgNodeDTO, OrgStructureResponse
  Dividends:   DividendDTO
  Sync:        SyncExecuteRequest (responses are reconcile reports)
  Scenarios:   ScenarioDTO, LoadScenarioRequest
  Misc:        ServiceInfoDTO, HealthDTO, ErrorResponse

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/report.go: DetectionReport, ExecutionReport
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/reconcile"
)

const dateLayout = "2006-01-02"

// Display defaults for unassigned references.
const (
	unassignedDepartment = "Unassigned"
	unassignedPosition   = "Unspecified"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeListItemDTO is one row of the employee list view.
type EmployeeListItemDTO struct {
	EmployeeID     hr.EmployeeID        `json:"EmployeeID"`
	FullName       string               `json:"FullName"`
	DepartmentName string               `json:"DepartmentName"`
	PositionName   string               `json:"PositionName"`
	Status         string               `json:"Status"`
	SyncStatus     reconcile.SyncStatus `json:"SyncStatus"`
	HireDate       string               `json:"HireDate,omitempty"`
}

// EmployeeDetailDTO is the unified profile: HR data plus the Payroll
// sync status.
type EmployeeDetailDTO struct {
	EmployeeID     hr.EmployeeID        `json:"EmployeeID"`
	FullName       string               `json:"FullName"`
	DateOfBirth    string               `json:"DateOfBirth,omitempty"`
	Gender         string               `json:"Gender,omitempty"`
	PhoneNumber    string               `json:"PhoneNumber,omitempty"`
	Email          string               `json:"Email,omitempty"`
	HireDate       string               `json:"HireDate,omitempty"`
	DepartmentID   *hr.DepartmentID     `json:"DepartmentID"`
	PositionID     *hr.PositionID       `json:"PositionID"`
	DepartmentName string               `json:"DepartmentName,omitempty"`
	PositionName   string               `json:"PositionName,omitempty"`
	Status         string               `json:"Status"`
	SyncStatus     reconcile.SyncStatus `json:"SyncStatus"`
	CreatedAt      *time.Time           `json:"CreatedAt,omitempty"`
	UpdatedAt      *time.Time           `json:"UpdatedAt,omitempty"`
}

func toListItem(e hr.Employee, m *hr.MirrorEmployee) EmployeeListItemDTO {
	item := EmployeeListItemDTO{
		EmployeeID:     e.ID,
		FullName:       e.FullName,
		DepartmentName: e.DepartmentName,
		PositionName:   e.PositionName,
		Status:         e.Status,
		SyncStatus:     reconcile.StatusOf(e, m),
		HireDate:       formatDate(e.HireDate),
	}
	if item.DepartmentName == "" {
		item.DepartmentName = unassignedDepartment
	}
	if item.PositionName == "" {
		item.PositionName = unassignedPosition
	}
	if item.Status == "" {
		item.Status = hr.StatusActive
	}
	return item
}

func toDetail(e hr.Employee, m *hr.MirrorEmployee) EmployeeDetailDTO {
	return EmployeeDetailDTO{
		EmployeeID:     e.ID,
		FullName:       e.FullName,
		DateOfBirth:    formatDate(e.DateOfBirth),
		Gender:         e.Gender,
		PhoneNumber:    e.PhoneNumber,
		Email:          e.Email,
		HireDate:       formatDate(e.HireDate),
		DepartmentID:   e.DepartmentID,
		PositionID:     e.PositionID,
		DepartmentName: e.DepartmentName,
		PositionName:   e.PositionName,
		Status:         e.Status,
		SyncStatus:     reconcile.StatusOf(e, m),
		CreatedAt:      timePtr(e.CreatedAt),
		UpdatedAt:      timePtr(e.UpdatedAt),
	}
}

// =============================================================================
// ORGANIZATION
// =============================================================================

// DepartmentDTO represents a department with its HR headcount.
type DepartmentDTO struct {
	DepartmentID   hr.DepartmentID `json:"DepartmentID"`
	DepartmentName string          `json:"DepartmentName"`
	EmployeeCount  int             `json:"EmployeeCount"`
}

// PositionDTO represents a job position.
type PositionDTO struct {
	PositionID   hr.PositionID `json:"PositionID"`
	PositionName string        `json:"PositionName"`
}

// OrgNodeDTO is one department with its employees.
type OrgNodeDTO struct {
	DepartmentID   hr.DepartmentID       `json:"DepartmentID"`
	DepartmentName string                `json:"DepartmentName"`
	Employees      []EmployeeListItemDTO `json:"Employees"`
	EmployeeCount  int                   `json:"EmployeeCount"`
}

// OrgStructureResponse groups employees by department.
type OrgStructureResponse struct {
	Departments      []OrgNodeDTO `json:"Departments"`
	TotalDepartments int          `json:"TotalDepartments"`
	TotalEmployees   int          `json:"TotalEmployees"`
}

// =============================================================================
// DIVIDENDS
// =============================================================================

// DividendDTO represents a dividend. Amounts serialize as decimal strings.
type DividendDTO struct {
	DividendID     int             `json:"DividendID"`
	EmployeeID     hr.EmployeeID   `json:"EmployeeID"`
	EmployeeName   string          `json:"EmployeeName,omitempty"`
	DividendAmount decimal.Decimal `json:"DividendAmount"`
	DividendDate   string          `json:"DividendDate"`
	CreatedAt      *time.Time      `json:"CreatedAt,omitempty"`
}

// =============================================================================
// SYNC
// =============================================================================

// SyncExecuteRequest is the body of POST /api/hr/sync/execute.
type SyncExecuteRequest struct {
	EmployeeIDs []hr.EmployeeID `json:"EmployeeIDs"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// SERVICE
// =============================================================================

// ServiceInfoDTO is returned by GET /.
type ServiceInfoDTO struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// HealthDTO reports store connectivity.
type HealthDTO struct {
	Status   string            `json:"status"`
	Database map[string]string `json:"database"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
