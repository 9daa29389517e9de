package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-sync/hr"
)

const hrSchema = `
	CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		date_of_birth TEXT,
		gender TEXT,
		phone_number TEXT,
		email TEXT,
		hire_date TEXT,
		department_id INTEGER REFERENCES departments(id),
		position_id INTEGER REFERENCES positions(id),
		status TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department_id);

	CREATE TABLE IF NOT EXISTS dividends (
		id INTEGER PRIMARY KEY,
		employee_id INTEGER REFERENCES employees(id),
		amount TEXT NOT NULL,
		dividend_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dividends_employee
		ON dividends(employee_id);
`

// HRStore is the authoritative HR database.
type HRStore struct {
	db *sql.DB
}

// NewHR opens (and migrates) the HR database at dsn.
// Use ":memory:" for an in-memory database.
func NewHR(dsn string) (*HRStore, error) {
	db, err := open(dsn, hrSchema)
	if err != nil {
		return nil, err
	}
	return &HRStore{db: db}, nil
}

// Close closes the database connection.
func (s *HRStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *HRStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Version reports the SQLite library version.
func (s *HRStore) Version(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v)
	return v, err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `
	e.id, e.full_name, e.date_of_birth, e.gender, e.phone_number, e.email,
	e.hire_date, e.department_id, e.position_id, e.status, e.created_at,
	e.updated_at, d.name, p.name
`

const employeeFrom = `
	FROM employees e
	LEFT JOIN departments d ON d.id = e.department_id
	LEFT JOIN positions p ON p.id = e.position_id
`

// ListEmployees returns every employee ordered by ID.
func (s *HRStore) ListEmployees(ctx context.Context) ([]hr.Employee, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+employeeColumns+employeeFrom+" ORDER BY e.id")
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var employees []hr.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		employees = append(employees, e)
	}
	return employees, storeErr(rows.Err())
}

// GetEmployee retrieves an employee by ID. Returns nil if absent.
func (s *HRStore) GetEmployee(ctx context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+employeeColumns+employeeFrom+" WHERE e.id = ?", int(id))
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(r scanner) (hr.Employee, error) {
	var (
		e                               hr.Employee
		id                              int
		dob, gender, phone, email, hire sql.NullString
		status, createdAt, updatedAt    sql.NullString
		deptID, posID                   sql.NullInt64
		deptName, posName               sql.NullString
	)
	err := r.Scan(&id, &e.FullName, &dob, &gender, &phone, &email,
		&hire, &deptID, &posID, &status, &createdAt,
		&updatedAt, &deptName, &posName)
	if err != nil {
		return hr.Employee{}, err
	}

	e.ID = hr.EmployeeID(id)
	e.DateOfBirth = parseDate(dob)
	e.Gender = gender.String
	e.PhoneNumber = phone.String
	e.Email = email.String
	e.HireDate = parseDate(hire)
	e.DepartmentID = refFrom[hr.DepartmentID](deptID)
	e.PositionID = refFrom[hr.PositionID](posID)
	e.Status = status.String
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.DepartmentName = deptName.String
	e.PositionName = posName.String
	return e, nil
}

// SaveEmployee inserts or updates an employee. CreatedAt is kept on update.
func (s *HRStore) SaveEmployee(ctx context.Context, e hr.Employee) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO employees
		(id, full_name, date_of_birth, gender, phone_number, email, hire_date,
		 department_id, position_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			date_of_birth = excluded.date_of_birth,
			gender = excluded.gender,
			phone_number = excluded.phone_number,
			email = excluded.email,
			hire_date = excluded.hire_date,
			department_id = excluded.department_id,
			position_id = excluded.position_id,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		int(e.ID), e.FullName,
		formatDate(e.DateOfBirth), nullString(e.Gender), nullString(e.PhoneNumber), nullString(e.Email),
		formatDate(e.HireDate),
		nullRef(e.DepartmentID), nullRef(e.PositionID),
		nullString(e.Status),
		formatTime(now), formatTime(now),
	)
	return err
}

// =============================================================================
// DEPARTMENTS & POSITIONS
// =============================================================================

// GetDepartment retrieves a department by ID. Returns nil if absent.
func (s *HRStore) GetDepartment(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	var d hr.Department
	var did int
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM departments WHERE id = ?", int(id)).Scan(&did, &d.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	d.ID = hr.DepartmentID(did)
	return &d, nil
}

// GetPosition retrieves a position by ID. Returns nil if absent.
func (s *HRStore) GetPosition(ctx context.Context, id hr.PositionID) (*hr.Position, error) {
	var p hr.Position
	var pid int
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM positions WHERE id = ?", int(id)).Scan(&pid, &p.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	p.ID = hr.PositionID(pid)
	return &p, nil
}

// ListDepartments returns departments with their employee counts.
func (s *HRStore) ListDepartments(ctx context.Context) ([]hr.DepartmentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, COUNT(e.id)
		FROM departments d
		LEFT JOIN employees e ON e.department_id = d.id
		GROUP BY d.id, d.name
		ORDER BY d.id
	`)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []hr.DepartmentSummary
	for rows.Next() {
		var ds hr.DepartmentSummary
		var id int
		if err := rows.Scan(&id, &ds.Name, &ds.EmployeeCount); err != nil {
			return nil, storeErr(err)
		}
		ds.ID = hr.DepartmentID(id)
		result = append(result, ds)
	}
	return result, storeErr(rows.Err())
}

// ListPositions returns every position ordered by ID.
func (s *HRStore) ListPositions(ctx context.Context) ([]hr.Position, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM positions ORDER BY id")
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []hr.Position
	for rows.Next() {
		var p hr.Position
		var id int
		if err := rows.Scan(&id, &p.Name); err != nil {
			return nil, storeErr(err)
		}
		p.ID = hr.PositionID(id)
		result = append(result, p)
	}
	return result, storeErr(rows.Err())
}

// SaveDepartment inserts or renames a department.
func (s *HRStore) SaveDepartment(ctx context.Context, d hr.Department) error {
	return s.saveLookup(ctx, "departments", int(d.ID), d.Name)
}

// SavePosition inserts or renames a position.
func (s *HRStore) SavePosition(ctx context.Context, p hr.Position) error {
	return s.saveLookup(ctx, "positions", int(p.ID), p.Name)
}

// saveLookup upserts into departments or positions; table is never user input.
func (s *HRStore) saveLookup(ctx context.Context, table string, id int, name string) error {
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, id, name, now, now)
	return err
}

// =============================================================================
// DIVIDENDS
// =============================================================================

// ListDividends returns dividends, optionally for one employee.
func (s *HRStore) ListDividends(ctx context.Context, employeeID *hr.EmployeeID) ([]hr.Dividend, error) {
	query := `
		SELECT v.id, v.employee_id, e.full_name, v.amount, v.dividend_date, v.created_at
		FROM dividends v
		LEFT JOIN employees e ON e.id = v.employee_id
	`
	var args []any
	if employeeID != nil {
		query += " WHERE v.employee_id = ?"
		args = append(args, int(*employeeID))
	}
	query += " ORDER BY v.dividend_date, v.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []hr.Dividend
	for rows.Next() {
		var (
			d               hr.Dividend
			empID           sql.NullInt64
			name            sql.NullString
			amount          string
			date, createdAt sql.NullString
		)
		if err := rows.Scan(&d.ID, &empID, &name, &amount, &date, &createdAt); err != nil {
			return nil, storeErr(err)
		}
		d.EmployeeID = hr.EmployeeID(empID.Int64)
		d.EmployeeName = name.String
		d.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, storeErr(err)
		}
		d.Date = parseDate(date)
		d.CreatedAt = parseTime(createdAt)
		result = append(result, d)
	}
	return result, storeErr(rows.Err())
}

// SaveDividend records a dividend. A zero ID lets SQLite assign one.
func (s *HRStore) SaveDividend(ctx context.Context, d hr.Dividend) error {
	var id any
	if d.ID != 0 {
		id = d.ID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dividends (id, employee_id, amount, dividend_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, int(d.EmployeeID), d.Amount.String(), formatDate(d.Date), formatTime(time.Now().UTC()))
	if isUniqueConstraintError(err) {
		return fmt.Errorf("dividend %d already exists: %w", d.ID, err)
	}
	return err
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all HR data.
func (s *HRStore) Reset(ctx context.Context) error {
	for _, table := range []string{"dividends", "employees", "positions", "departments"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}
