/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that populate both databases with
	realistic data. Each scenario resets HR and Payroll, then seeds them
	so the Sync Center shows a specific drift picture.

AVAILABLE SCENARIOS:

	in-sync:      Payroll mirrors HR exactly, nothing to do
	drifted:      Employee 3 missing from Payroll, employee 5 in a stale department
	empty-mirror: Payroll is empty, every employee needs an INSERT

HOW SCENARIOS WORK:
 1. Reset both databases
 2. Create HR departments, positions, employees and dividends
 3. Create the Payroll lookups and employee rows

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "drifted"}

USAGE VIA CLI:

	server seed --scenario drifted

NOTE:

	Scenarios reset the databases. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Sync endpoints exercised by the scenarios
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "in-sync",
		Name:        "In Sync",
		Description: "Payroll mirrors HR exactly; the check reports nothing to do",
	},
	{
		ID:          "drifted",
		Name:        "Drifted",
		Description: "Employee 3 is missing from Payroll and employee 5 has a stale department",
	},
	{
		ID:          "empty-mirror",
		Name:        "Empty Mirror",
		Description: "Fresh Payroll database; every HR employee needs an INSERT",
	},
}

// Scenarios returns the available demo scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// Dataset is the full content of both databases for one scenario.
type Dataset struct {
	Departments []hr.Department
	Positions   []hr.Position
	Employees   []hr.Employee
	Dividends   []hr.Dividend

	MirrorDepartments []hr.Department
	MirrorPositions   []hr.Position
	Mirror            []hr.MirrorEmployee
}

// Seeder replaces the content of both databases with a dataset.
type Seeder interface {
	Seed(ctx context.Context, d Dataset) error
}

// LoadDataset builds the dataset for a scenario ID.
func LoadDataset(id string) (Dataset, error) {
	base := baseDataset()

	switch id {
	case "in-sync":
		base.MirrorDepartments = base.Departments
		base.MirrorPositions = base.Positions
		base.Mirror = mirrorAll(base.Employees)
	case "drifted":
		base.MirrorDepartments = base.Departments
		base.MirrorPositions = base.Positions
		for _, m := range mirrorAll(base.Employees) {
			switch m.ID {
			case 3:
				continue
			case 5:
				m.DepartmentID = hr.DeptRef(7)
			}
			base.Mirror = append(base.Mirror, m)
		}
	case "empty-mirror":
	default:
		return Dataset{}, fmt.Errorf("unknown scenario: %s", id)
	}
	return base, nil
}

func baseDataset() Dataset {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	emp := func(id int, name string, dept, pos int, dob, hired time.Time, gender, email string) hr.Employee {
		return hr.Employee{
			ID:           hr.EmployeeID(id),
			FullName:     name,
			DateOfBirth:  dob,
			Gender:       gender,
			Email:        email,
			HireDate:     hired,
			DepartmentID: hr.DeptRef(hr.DepartmentID(dept)),
			PositionID:   hr.PosRef(hr.PositionID(pos)),
			Status:       hr.StatusActive,
		}
	}

	return Dataset{
		Departments: []hr.Department{
			{ID: 1, Name: "IT Department"},
			{ID: 2, Name: "HR Department"},
			{ID: 3, Name: "Accounting"},
		},
		Positions: []hr.Position{
			{ID: 1, Name: "Senior Developer"},
			{ID: 2, Name: "HR Manager"},
			{ID: 3, Name: "Junior Developer"},
			{ID: 4, Name: "Accountant"},
			{ID: 5, Name: "DevOps Engineer"},
		},
		Employees: []hr.Employee{
			emp(1, "Nguyễn Văn An", 1, 1, date(1990, time.May, 15), date(2023, time.January, 15), "Male", "an.nguyen@company.vn"),
			emp(2, "Trần Thị Bình", 2, 2, date(1988, time.August, 2), date(2023, time.March, 10), "Female", "binh.tran@company.vn"),
			emp(3, "Lê Văn Cường", 1, 3, date(1998, time.November, 20), date(2024, time.January, 5), "Male", "cuong.le@company.vn"),
			emp(4, "Phạm Thị Dung", 3, 4, date(1992, time.February, 28), date(2023, time.June, 20), "Female", "dung.pham@company.vn"),
			emp(5, "Hoàng Văn Em", 1, 5, date(1995, time.July, 7), date(2024, time.February, 1), "Male", "em.hoang@company.vn"),
		},
		Dividends: []hr.Dividend{
			{ID: 1, EmployeeID: 1, Amount: decimal.RequireFromString("15000000.00"), Date: date(2025, time.December, 31)},
			{ID: 2, EmployeeID: 2, Amount: decimal.RequireFromString("12500000.50"), Date: date(2025, time.December, 31)},
			{ID: 3, EmployeeID: 4, Amount: decimal.RequireFromString("8000000.00"), Date: date(2025, time.December, 31)},
		},
	}
}

func mirrorAll(emps []hr.Employee) []hr.MirrorEmployee {
	out := make([]hr.MirrorEmployee, len(emps))
	for i, e := range emps {
		out[i] = hr.MirrorEmployee{
			ID:           e.ID,
			FullName:     e.FullName,
			DepartmentID: e.DepartmentID,
			PositionID:   e.PositionID,
			Status:       e.Status,
		}
	}
	return out
}

// =============================================================================
// SQLITE SEEDER
// =============================================================================

// SQLiteSeeder seeds the SQLite HR and Payroll stores.
type SQLiteSeeder struct {
	HR      *sqlite.HRStore
	Payroll *sqlite.PayrollStore
}

// Seed resets both databases and writes the dataset.
func (s SQLiteSeeder) Seed(ctx context.Context, d Dataset) error {
	if err := s.HR.Reset(ctx); err != nil {
		return fmt.Errorf("reset hr: %w", err)
	}
	if err := s.Payroll.Reset(ctx); err != nil {
		return fmt.Errorf("reset payroll: %w", err)
	}

	for _, dept := range d.Departments {
		if err := s.HR.SaveDepartment(ctx, dept); err != nil {
			return fmt.Errorf("seed department %d: %w", dept.ID, err)
		}
	}
	for _, pos := range d.Positions {
		if err := s.HR.SavePosition(ctx, pos); err != nil {
			return fmt.Errorf("seed position %d: %w", pos.ID, err)
		}
	}
	for _, e := range d.Employees {
		if err := s.HR.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("seed employee %d: %w", e.ID, err)
		}
	}
	for _, div := range d.Dividends {
		if err := s.HR.SaveDividend(ctx, div); err != nil {
			return fmt.Errorf("seed dividend %d: %w", div.ID, err)
		}
	}

	for _, dept := range d.MirrorDepartments {
		if err := s.Payroll.SaveDepartment(ctx, dept); err != nil {
			return fmt.Errorf("seed payroll department %d: %w", dept.ID, err)
		}
	}
	for _, pos := range d.MirrorPositions {
		if err := s.Payroll.SavePosition(ctx, pos); err != nil {
			return fmt.Errorf("seed payroll position %d: %w", pos.ID, err)
		}
	}
	for _, m := range d.Mirror {
		if err := s.Payroll.SaveEmployee(ctx, m); err != nil {
			return fmt.Errorf("seed payroll employee %d: %w", m.ID, err)
		}
	}
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets both databases and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Seeder == nil {
		writeError(w, http.StatusNotImplemented, "Scenario loading is not available for these stores", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dataset, err := LoadDataset(req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", err)
		return
	}

	if err := h.Seeder.Seed(r.Context(), dataset); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.setScenario(req.ScenarioID)
	h.log(r).Info().Str("scenario", req.ScenarioID).Msg("scenario loaded")

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}
