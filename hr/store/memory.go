// Package store provides in-memory implementations of the hr store interfaces.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payroll-sync/hr"
)

// =============================================================================
// AUTHORITATIVE MEMORY STORE - HR side (for testing/dev)
// =============================================================================

// Authoritative is an in-memory HR store.
type Authoritative struct {
	mu          sync.RWMutex
	employees   map[hr.EmployeeID]hr.Employee
	departments map[hr.DepartmentID]hr.Department
	positions   map[hr.PositionID]hr.Position
	dividends   []hr.Dividend

	// Err, when set, is returned by every read.
	Err error
}

func NewAuthoritative() *Authoritative {
	return &Authoritative{
		employees:   make(map[hr.EmployeeID]hr.Employee),
		departments: make(map[hr.DepartmentID]hr.Department),
		positions:   make(map[hr.PositionID]hr.Position),
	}
}

// PutEmployee adds or replaces an employee.
func (a *Authoritative) PutEmployee(e hr.Employee) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.employees[e.ID] = cloneEmployee(e)
}

// DeleteEmployee removes an employee.
func (a *Authoritative) DeleteEmployee(id hr.EmployeeID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.employees, id)
}

func (a *Authoritative) PutDepartment(d hr.Department) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.departments[d.ID] = d
}

func (a *Authoritative) PutPosition(p hr.Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions[p.ID] = p
}

func (a *Authoritative) AddDividend(d hr.Dividend) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dividends = append(a.dividends, d)
}

func (a *Authoritative) ListEmployees(_ context.Context) ([]hr.Employee, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	result := make([]hr.Employee, 0, len(a.employees))
	for _, e := range a.employees {
		result = append(result, a.resolveLocked(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (a *Authoritative) GetEmployee(_ context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	e, ok := a.employees[id]
	if !ok {
		return nil, nil
	}
	resolved := a.resolveLocked(e)
	return &resolved, nil
}

func (a *Authoritative) GetDepartment(_ context.Context, id hr.DepartmentID) (*hr.Department, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	d, ok := a.departments[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (a *Authoritative) GetPosition(_ context.Context, id hr.PositionID) (*hr.Position, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	p, ok := a.positions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (a *Authoritative) ListDepartments(_ context.Context) ([]hr.DepartmentSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	counts := make(map[hr.DepartmentID]int)
	for _, e := range a.employees {
		if e.DepartmentID != nil {
			counts[*e.DepartmentID]++
		}
	}

	result := make([]hr.DepartmentSummary, 0, len(a.departments))
	for _, d := range a.departments {
		result = append(result, hr.DepartmentSummary{Department: d, EmployeeCount: counts[d.ID]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (a *Authoritative) ListPositions(_ context.Context) ([]hr.Position, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	result := make([]hr.Position, 0, len(a.positions))
	for _, p := range a.positions {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (a *Authoritative) ListDividends(_ context.Context, employeeID *hr.EmployeeID) ([]hr.Dividend, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.Err != nil {
		return nil, a.Err
	}

	var result []hr.Dividend
	for _, d := range a.dividends {
		if employeeID != nil && d.EmployeeID != *employeeID {
			continue
		}
		if e, ok := a.employees[d.EmployeeID]; ok {
			d.EmployeeName = e.FullName
		}
		result = append(result, d)
	}
	return result, nil
}

func (a *Authoritative) resolveLocked(e hr.Employee) hr.Employee {
	e = cloneEmployee(e)
	e.DepartmentName, e.PositionName = "", ""
	if e.DepartmentID != nil {
		if d, ok := a.departments[*e.DepartmentID]; ok {
			e.DepartmentName = d.Name
		}
	}
	if e.PositionID != nil {
		if p, ok := a.positions[*e.PositionID]; ok {
			e.PositionName = p.Name
		}
	}
	return e
}

// =============================================================================
// MIRROR MEMORY STORE - Payroll side
// =============================================================================

// Mirror is an in-memory Payroll store with failure injection.
type Mirror struct {
	mu          sync.RWMutex
	employees   map[hr.EmployeeID]hr.MirrorEmployee
	departments map[hr.DepartmentID]hr.Department
	positions   map[hr.PositionID]hr.Position

	// CommitErr, when set, makes every Commit fail and discard its writes.
	CommitErr error

	// FailPut, when set, is consulted before each staged write.
	// kind is "employee", "department" or "position".
	FailPut func(kind string, id int) error

	// BeginErr, when set, is returned by Begin.
	BeginErr error
}

func NewMirror() *Mirror {
	return &Mirror{
		employees:   make(map[hr.EmployeeID]hr.MirrorEmployee),
		departments: make(map[hr.DepartmentID]hr.Department),
		positions:   make(map[hr.PositionID]hr.Position),
	}
}

// Seed writes rows directly, bypassing transactions.
func (m *Mirror) Seed(employees []hr.MirrorEmployee, departments []hr.Department, positions []hr.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range employees {
		m.employees[e.ID] = cloneMirror(e)
	}
	for _, d := range departments {
		m.departments[d.ID] = d
	}
	for _, p := range positions {
		m.positions[p.ID] = p
	}
}

func (m *Mirror) ListEmployees(_ context.Context) ([]hr.MirrorEmployee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]hr.MirrorEmployee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, cloneMirror(e))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Mirror) GetEmployee(_ context.Context, id hr.EmployeeID) (*hr.MirrorEmployee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	e = cloneMirror(e)
	return &e, nil
}

// Department returns the committed department row, if any.
func (m *Mirror) Department(id hr.DepartmentID) (hr.Department, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.departments[id]
	return d, ok
}

// Position returns the committed position row, if any.
func (m *Mirror) Position(id hr.PositionID) (hr.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[id]
	return p, ok
}

// Begin opens a staging transaction. Staged writes become visible to
// other readers only on Commit.
func (m *Mirror) Begin(_ context.Context) (hr.MirrorTx, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &mirrorTx{parent: m, staged: newStaging()}, nil
}

// =============================================================================
// MIRROR TRANSACTION
// =============================================================================

type staging struct {
	employees   map[hr.EmployeeID]hr.MirrorEmployee
	departments map[hr.DepartmentID]hr.Department
	positions   map[hr.PositionID]hr.Position
}

func newStaging() staging {
	return staging{
		employees:   make(map[hr.EmployeeID]hr.MirrorEmployee),
		departments: make(map[hr.DepartmentID]hr.Department),
		positions:   make(map[hr.PositionID]hr.Position),
	}
}

func (s staging) snapshot() staging {
	c := newStaging()
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.departments {
		c.departments[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	return c
}

type savepoint struct {
	name  string
	state staging
}

type mirrorTx struct {
	parent     *Mirror
	staged     staging
	savepoints []savepoint
	done       bool
}

func (tx *mirrorTx) GetEmployee(ctx context.Context, id hr.EmployeeID) (*hr.MirrorEmployee, error) {
	if tx.done {
		return nil, hr.ErrTxDone
	}
	if e, ok := tx.staged.employees[id]; ok {
		e = cloneMirror(e)
		return &e, nil
	}
	return tx.parent.GetEmployee(ctx, id)
}

func (tx *mirrorTx) GetDepartment(_ context.Context, id hr.DepartmentID) (*hr.Department, error) {
	if tx.done {
		return nil, hr.ErrTxDone
	}
	if d, ok := tx.staged.departments[id]; ok {
		return &d, nil
	}
	if d, ok := tx.parent.Department(id); ok {
		return &d, nil
	}
	return nil, nil
}

func (tx *mirrorTx) GetPosition(_ context.Context, id hr.PositionID) (*hr.Position, error) {
	if tx.done {
		return nil, hr.ErrTxDone
	}
	if p, ok := tx.staged.positions[id]; ok {
		return &p, nil
	}
	if p, ok := tx.parent.Position(id); ok {
		return &p, nil
	}
	return nil, nil
}

func (tx *mirrorTx) PutEmployee(_ context.Context, e hr.MirrorEmployee) error {
	if err := tx.check("employee", int(e.ID)); err != nil {
		return err
	}
	tx.staged.employees[e.ID] = cloneMirror(e)
	return nil
}

func (tx *mirrorTx) PutDepartment(_ context.Context, d hr.Department) error {
	if err := tx.check("department", int(d.ID)); err != nil {
		return err
	}
	tx.staged.departments[d.ID] = d
	return nil
}

func (tx *mirrorTx) PutPosition(_ context.Context, p hr.Position) error {
	if err := tx.check("position", int(p.ID)); err != nil {
		return err
	}
	tx.staged.positions[p.ID] = p
	return nil
}

func (tx *mirrorTx) check(kind string, id int) error {
	if tx.done {
		return hr.ErrTxDone
	}
	if tx.parent.FailPut != nil {
		return tx.parent.FailPut(kind, id)
	}
	return nil
}

func (tx *mirrorTx) Savepoint(_ context.Context, name string) error {
	if tx.done {
		return hr.ErrTxDone
	}
	tx.savepoints = append(tx.savepoints, savepoint{name: name, state: tx.staged.snapshot()})
	return nil
}

func (tx *mirrorTx) RollbackTo(_ context.Context, name string) error {
	if tx.done {
		return hr.ErrTxDone
	}
	i := tx.findSavepoint(name)
	if i < 0 {
		return fmt.Errorf("no such savepoint: %s", name)
	}
	// Like SQL, the savepoint stays open after ROLLBACK TO.
	tx.staged = tx.savepoints[i].state.snapshot()
	tx.savepoints = tx.savepoints[:i+1]
	return nil
}

func (tx *mirrorTx) Release(_ context.Context, name string) error {
	if tx.done {
		return hr.ErrTxDone
	}
	i := tx.findSavepoint(name)
	if i < 0 {
		return fmt.Errorf("no such savepoint: %s", name)
	}
	tx.savepoints = tx.savepoints[:i]
	return nil
}

func (tx *mirrorTx) findSavepoint(name string) int {
	for i := len(tx.savepoints) - 1; i >= 0; i-- {
		if tx.savepoints[i].name == name {
			return i
		}
	}
	return -1
}

func (tx *mirrorTx) Commit() error {
	if tx.done {
		return hr.ErrTxDone
	}
	tx.done = true

	m := tx.parent
	if m.CommitErr != nil {
		return m.CommitErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range tx.staged.employees {
		m.employees[k] = v
	}
	for k, v := range tx.staged.departments {
		m.departments[k] = v
	}
	for k, v := range tx.staged.positions {
		m.positions[k] = v
	}
	return nil
}

func (tx *mirrorTx) Rollback() error {
	tx.done = true
	tx.staged = newStaging()
	tx.savepoints = nil
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func cloneEmployee(e hr.Employee) hr.Employee {
	e.DepartmentID = cloneDept(e.DepartmentID)
	e.PositionID = clonePos(e.PositionID)
	return e
}

func cloneMirror(e hr.MirrorEmployee) hr.MirrorEmployee {
	e.DepartmentID = cloneDept(e.DepartmentID)
	e.PositionID = clonePos(e.PositionID)
	return e
}

func cloneDept(p *hr.DepartmentID) *hr.DepartmentID {
	if p == nil {
		return nil
	}
	return hr.DeptRef(*p)
}

func clonePos(p *hr.PositionID) *hr.PositionID {
	if p == nil {
		return nil
	}
	return hr.PosRef(*p)
}
