/*
handlers.go - HTTP API handlers for the HR/Payroll dashboard

PURPOSE:
  Exposes the HR directory and the reconciliation engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the stores and the engine.

ENDPOINTS:
  Service:
    GET    /                            Service info
    GET    /health                      Store connectivity

  Employees:
    GET    /api/hr/employees            List with sync status (?department_id=&search=)
    GET    /api/hr/employees/{id}       Unified profile

  Organization:
    GET    /api/hr/org-structure        Departments with their employees
    GET    /api/hr/departments          Departments with headcount
    GET    /api/hr/positions            Job positions
    GET    /api/hr/dividends            Dividends (?employee_id=)

  Sync:
    POST   /api/hr/sync/check           Detection report
    POST   /api/hr/sync/execute         Execute sync for EmployeeIDs

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    GET    /api/scenarios/current       Last loaded scenario
    POST   /api/scenarios/load          Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - HR: Authoritative directory (read only)
  - Payroll: Mirror store (read here, written only by the engine)
  - Engine: Check and Execute
  - Seeder: Optional scenario loader

FALLBACK:
  With Fallback set, the employee list, department list and sync check
  serve fixed demo data when a store read fails. Execute never falls back.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  - 503: Store unreachable (hr.ErrStoreUnavailable)
  Partial sync failures are not HTTP errors: the execution report
  carries them with Success=false.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/logging"
	"github.com/warp/payroll-sync/reconcile"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	HR      hr.Directory
	Payroll hr.MirrorStore
	Engine  *reconcile.Engine
	Seeder  Seeder

	// Fallback serves demo data when reads fail.
	Fallback bool

	now func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the given stores.
func NewHandler(directory hr.Directory, payroll hr.MirrorStore, engine *reconcile.Engine) *Handler {
	return &Handler{
		HR:      directory,
		Payroll: payroll,
		Engine:  engine,
		now:     time.Now,
	}
}

func (h *Handler) clock() time.Time {
	if h.now == nil {
		return time.Now()
	}
	return h.now()
}

func (h *Handler) log(r *http.Request) *zerolog.Logger {
	return logging.FromContext(r.Context())
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}

// =============================================================================
// SERVICE HANDLERS
// =============================================================================

// ServiceInfo returns basic API information.
// GET /
func (h *Handler) ServiceInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServiceInfoDTO{
		Message: "HR & Payroll Dashboard API",
		Version: Version,
		Status:  "running",
	})
}

// Health pings both stores.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthDTO{
		Status: "healthy",
		Database: map[string]string{
			"hr":      pingStatus(ctx, h.HR),
			"payroll": pingStatus(ctx, h.Payroll),
		},
	}
	status := http.StatusOK
	for _, s := range resp.Database {
		if s != "connected" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func pingStatus(ctx context.Context, store any) string {
	p, ok := store.(hr.Pinger)
	if !ok {
		return "connected"
	}
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns HR employees with their sync status.
// GET /api/hr/employees?department_id=&search=
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	var deptFilter *hr.DepartmentID
	if raw := r.URL.Query().Get("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid department_id", err)
			return
		}
		deptFilter = hr.DeptRef(hr.DepartmentID(id))
	}
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	employees, mirror, err := h.syncView(r.Context())
	if err != nil {
		if h.Fallback {
			h.log(r).Warn().Err(err).Msg("serving fallback employees")
			writeJSON(w, http.StatusOK, fallbackEmployees())
			return
		}
		writeError(w, statusFor(err), "Failed to list employees", err)
		return
	}

	items := []EmployeeListItemDTO{}
	for _, e := range employees {
		if deptFilter != nil && (e.DepartmentID == nil || *e.DepartmentID != *deptFilter) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.FullName), search) {
			continue
		}
		items = append(items, toListItem(e, mirror[e.ID]))
	}
	writeJSON(w, http.StatusOK, items)
}

// syncView loads HR employees and the mirror rows indexed by ID.
func (h *Handler) syncView(ctx context.Context) ([]hr.Employee, map[hr.EmployeeID]*hr.MirrorEmployee, error) {
	employees, err := h.HR.ListEmployees(ctx)
	if err != nil {
		return nil, nil, err
	}
	mirrored, err := h.Payroll.ListEmployees(ctx)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[hr.EmployeeID]*hr.MirrorEmployee, len(mirrored))
	for i := range mirrored {
		byID[mirrored[i].ID] = &mirrored[i]
	}
	return employees, byID, nil
}

// GetEmployee returns the unified profile of one employee.
// GET /api/hr/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id", err)
		return
	}
	ctx := r.Context()

	emp, err := h.HR.GetEmployee(ctx, hr.EmployeeID(id))
	if err != nil {
		writeError(w, statusFor(err), "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", hr.EmployeeNotFound(hr.EmployeeID(id)))
		return
	}

	mirror, err := h.Payroll.GetEmployee(ctx, emp.ID)
	if err != nil {
		writeError(w, statusFor(err), "Failed to get payroll employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toDetail(*emp, mirror))
}

// =============================================================================
// ORGANIZATION HANDLERS
// =============================================================================

// GetOrgStructure groups employees by department.
// GET /api/hr/org-structure
func (h *Handler) GetOrgStructure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	depts, err := h.HR.ListDepartments(ctx)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list departments", err)
		return
	}
	employees, mirror, err := h.syncView(ctx)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list employees", err)
		return
	}

	byDept := make(map[hr.DepartmentID][]EmployeeListItemDTO)
	for _, e := range employees {
		if e.DepartmentID == nil {
			continue
		}
		byDept[*e.DepartmentID] = append(byDept[*e.DepartmentID], toListItem(e, mirror[e.ID]))
	}

	resp := OrgStructureResponse{Departments: make([]OrgNodeDTO, 0, len(depts))}
	for _, d := range depts {
		members := byDept[d.ID]
		if members == nil {
			members = []EmployeeListItemDTO{}
		}
		resp.Departments = append(resp.Departments, OrgNodeDTO{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			Employees:      members,
			EmployeeCount:  len(members),
		})
		resp.TotalEmployees += len(members)
	}
	resp.TotalDepartments = len(depts)

	writeJSON(w, http.StatusOK, resp)
}

// ListDepartments returns departments with their headcount.
// GET /api/hr/departments
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.HR.ListDepartments(r.Context())
	if err != nil {
		if h.Fallback {
			h.log(r).Warn().Err(err).Msg("serving fallback departments")
			writeJSON(w, http.StatusOK, fallbackDepartments())
			return
		}
		writeError(w, statusFor(err), "Failed to list departments", err)
		return
	}

	dtos := make([]DepartmentDTO, len(depts))
	for i, d := range depts {
		dtos[i] = DepartmentDTO{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			EmployeeCount:  d.EmployeeCount,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPositions returns every job position.
// GET /api/hr/positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.HR.ListPositions(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to list positions", err)
		return
	}

	dtos := make([]PositionDTO, len(positions))
	for i, p := range positions {
		dtos[i] = PositionDTO{PositionID: p.ID, PositionName: p.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListDividends returns dividends, optionally for one employee.
// GET /api/hr/dividends?employee_id=
func (h *Handler) ListDividends(w http.ResponseWriter, r *http.Request) {
	var filter *hr.EmployeeID
	if raw := r.URL.Query().Get("employee_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid employee_id", err)
			return
		}
		eid := hr.EmployeeID(id)
		filter = &eid
	}

	divs, err := h.HR.ListDividends(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), "Failed to list dividends", err)
		return
	}

	dtos := make([]DividendDTO, len(divs))
	for i, d := range divs {
		dtos[i] = DividendDTO{
			DividendID:     d.ID,
			EmployeeID:     d.EmployeeID,
			EmployeeName:   d.EmployeeName,
			DividendAmount: d.Amount,
			DividendDate:   formatDate(d.Date),
			CreatedAt:      timePtr(d.CreatedAt),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SYNC HANDLERS
// =============================================================================

// CheckSync runs drift detection.
// POST /api/hr/sync/check
func (h *Handler) CheckSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Check(r.Context())
	if err != nil {
		if h.Fallback {
			h.log(r).Warn().Err(err).Msg("serving fallback sync check")
			writeJSON(w, http.StatusOK, fallbackDetection(h.clock()))
			return
		}
		writeError(w, statusFor(err), "Failed to check sync status", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExecuteSync copies the requested employees from HR into Payroll.
// POST /api/hr/sync/execute
func (h *Handler) ExecuteSync(w http.ResponseWriter, r *http.Request) {
	var req SyncExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.EmployeeIDs) == 0 {
		writeError(w, http.StatusBadRequest, hr.ErrEmptyRequest.Error(), nil)
		return
	}

	report := h.Engine.Execute(r.Context(), req.EmployeeIDs)
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case hr.IsNotFound(err):
		return http.StatusNotFound
	case hr.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, hr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
