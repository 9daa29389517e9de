package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/payroll-sync/hr"
)

// Payroll tables carry no foreign keys: rows are copied from HR in any
// order and lookups are materialized lazily.
const payrollSchema = `
	CREATE TABLE IF NOT EXISTS employees_payroll (
		employee_id INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		department_id INTEGER,
		position_id INTEGER,
		status TEXT,
		synced_at TEXT
	);

	CREATE TABLE IF NOT EXISTS departments_payroll (
		department_id INTEGER PRIMARY KEY,
		department_name TEXT NOT NULL,
		synced_at TEXT
	);

	CREATE TABLE IF NOT EXISTS positions_payroll (
		position_id INTEGER PRIMARY KEY,
		position_name TEXT NOT NULL,
		synced_at TEXT
	);
`

// PayrollStore is the Payroll mirror database.
type PayrollStore struct {
	db *sql.DB
}

// NewPayroll opens (and migrates) the Payroll database at dsn.
func NewPayroll(dsn string) (*PayrollStore, error) {
	db, err := open(dsn, payrollSchema)
	if err != nil {
		return nil, err
	}
	return &PayrollStore{db: db}, nil
}

// Close closes the database connection.
func (s *PayrollStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *PayrollStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// READS (hr.MirrorStore)
// =============================================================================

// ListEmployees returns every mirror employee ordered by ID.
func (s *PayrollStore) ListEmployees(ctx context.Context) ([]hr.MirrorEmployee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, full_name, department_id, position_id, status, synced_at
		FROM employees_payroll
		ORDER BY employee_id
	`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []hr.MirrorEmployee
	for rows.Next() {
		m, err := scanMirror(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		result = append(result, m)
	}
	return result, storeErr(rows.Err())
}

// GetEmployee retrieves a mirror employee. Returns nil if absent.
func (s *PayrollStore) GetEmployee(ctx context.Context, id hr.EmployeeID) (*hr.MirrorEmployee, error) {
	return getMirror(ctx, s.db, id)
}

// GetDepartment retrieves a mirror department. Returns nil if absent.
func (s *PayrollStore) GetDepartment(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	return getMirrorDepartment(ctx, s.db, id)
}

// GetPosition retrieves a mirror position. Returns nil if absent.
func (s *PayrollStore) GetPosition(ctx context.Context, id hr.PositionID) (*hr.Position, error) {
	return getMirrorPosition(ctx, s.db, id)
}

func getMirror(ctx context.Context, q queryer, id hr.EmployeeID) (*hr.MirrorEmployee, error) {
	row := q.QueryRowContext(ctx, `
		SELECT employee_id, full_name, department_id, position_id, status, synced_at
		FROM employees_payroll
		WHERE employee_id = ?
	`, int(id))
	m, err := scanMirror(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &m, nil
}

func scanMirror(r scanner) (hr.MirrorEmployee, error) {
	var (
		m              hr.MirrorEmployee
		id             int
		deptID, posID  sql.NullInt64
		status, synced sql.NullString
	)
	if err := r.Scan(&id, &m.FullName, &deptID, &posID, &status, &synced); err != nil {
		return hr.MirrorEmployee{}, err
	}
	m.ID = hr.EmployeeID(id)
	m.DepartmentID = refFrom[hr.DepartmentID](deptID)
	m.PositionID = refFrom[hr.PositionID](posID)
	m.Status = status.String
	m.SyncedAt = parseTime(synced)
	return m, nil
}

func getMirrorDepartment(ctx context.Context, q queryer, id hr.DepartmentID) (*hr.Department, error) {
	var (
		d      hr.Department
		did    int
		synced sql.NullString
	)
	err := q.QueryRowContext(ctx,
		"SELECT department_id, department_name, synced_at FROM departments_payroll WHERE department_id = ?",
		int(id),
	).Scan(&did, &d.Name, &synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	d.ID = hr.DepartmentID(did)
	d.SyncedAt = parseTime(synced)
	return &d, nil
}

func getMirrorPosition(ctx context.Context, q queryer, id hr.PositionID) (*hr.Position, error) {
	var (
		p      hr.Position
		pid    int
		synced sql.NullString
	)
	err := q.QueryRowContext(ctx,
		"SELECT position_id, position_name, synced_at FROM positions_payroll WHERE position_id = ?",
		int(id),
	).Scan(&pid, &p.Name, &synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	p.ID = hr.PositionID(pid)
	p.SyncedAt = parseTime(synced)
	return &p, nil
}

// =============================================================================
// WRITES
// =============================================================================

func putMirror(ctx context.Context, db execer, m hr.MirrorEmployee) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO employees_payroll
		(employee_id, full_name, department_id, position_id, status, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			full_name = excluded.full_name,
			department_id = excluded.department_id,
			position_id = excluded.position_id,
			status = excluded.status,
			synced_at = excluded.synced_at
	`, int(m.ID), m.FullName, nullRef(m.DepartmentID), nullRef(m.PositionID), nullString(m.Status), formatTime(m.SyncedAt))
	return err
}

// putMirrorDepartment only inserts; existing rows keep their name.
func putMirrorDepartment(ctx context.Context, db execer, d hr.Department) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO departments_payroll (department_id, department_name, synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(department_id) DO NOTHING
	`, int(d.ID), d.Name, formatTime(d.SyncedAt))
	return err
}

// putMirrorPosition only inserts; existing rows keep their name.
func putMirrorPosition(ctx context.Context, db execer, p hr.Position) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO positions_payroll (position_id, position_name, synced_at)
		VALUES (?, ?, ?)
		ON CONFLICT(position_id) DO NOTHING
	`, int(p.ID), p.Name, formatTime(p.SyncedAt))
	return err
}

// SaveEmployee writes a mirror row outside any sync transaction.
// Used for seeding.
func (s *PayrollStore) SaveEmployee(ctx context.Context, m hr.MirrorEmployee) error {
	return putMirror(ctx, s.db, m)
}

// SaveDepartment writes a mirror department outside any sync transaction.
func (s *PayrollStore) SaveDepartment(ctx context.Context, d hr.Department) error {
	return putMirrorDepartment(ctx, s.db, d)
}

// SavePosition writes a mirror position outside any sync transaction.
func (s *PayrollStore) SavePosition(ctx context.Context, p hr.Position) error {
	return putMirrorPosition(ctx, s.db, p)
}

// Reset clears all Payroll data.
func (s *PayrollStore) Reset(ctx context.Context) error {
	for _, table := range []string{"employees_payroll", "departments_payroll", "positions_payroll"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TRANSACTION (hr.MirrorTx)
// =============================================================================

// Begin opens the transaction shared by one sync call.
func (s *PayrollStore) Begin(ctx context.Context) (hr.MirrorTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", storeErr(err))
	}
	return &payrollTx{tx: tx}, nil
}

type payrollTx struct {
	tx *sql.Tx
}

func (t *payrollTx) GetEmployee(ctx context.Context, id hr.EmployeeID) (*hr.MirrorEmployee, error) {
	m, err := getMirror(ctx, t.tx, id)
	return m, txErr(err)
}

func (t *payrollTx) GetDepartment(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	d, err := getMirrorDepartment(ctx, t.tx, id)
	return d, txErr(err)
}

func (t *payrollTx) GetPosition(ctx context.Context, id hr.PositionID) (*hr.Position, error) {
	p, err := getMirrorPosition(ctx, t.tx, id)
	return p, txErr(err)
}

func (t *payrollTx) PutEmployee(ctx context.Context, m hr.MirrorEmployee) error {
	return txErr(putMirror(ctx, t.tx, m))
}

func (t *payrollTx) PutDepartment(ctx context.Context, d hr.Department) error {
	return txErr(putMirrorDepartment(ctx, t.tx, d))
}

func (t *payrollTx) PutPosition(ctx context.Context, p hr.Position) error {
	return txErr(putMirrorPosition(ctx, t.tx, p))
}

func (t *payrollTx) Savepoint(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "SAVEPOINT ", name)
}

func (t *payrollTx) RollbackTo(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "ROLLBACK TO SAVEPOINT ", name)
}

func (t *payrollTx) Release(ctx context.Context, name string) error {
	return t.savepointExec(ctx, "RELEASE SAVEPOINT ", name)
}

func (t *payrollTx) savepointExec(ctx context.Context, stmt, name string) error {
	if err := validSavepoint(name); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, stmt+name)
	return txErr(err)
}

func (t *payrollTx) Commit() error {
	return txErr(t.tx.Commit())
}

func (t *payrollTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func txErr(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return hr.ErrTxDone
	}
	return err
}
