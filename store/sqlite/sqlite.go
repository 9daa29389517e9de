/*
Package sqlite provides SQLite-backed implementations of the HR and
Payroll stores.

PURPOSE:
  The dashboard talks to two independent databases: HR (source of truth)
  and Payroll (mirror). Each is a separate SQLite database with its own
  schema, opened through Open with its own DSN. The same patterns apply to
  other SQL engines with minor dialect changes.

INTERFACES IMPLEMENTED:
  HRStore:      hr.Directory, hr.Pinger
  PayrollStore: hr.MirrorStore, hr.Pinger
  payrollTx:    hr.MirrorTx (savepoints map to SQL SAVEPOINT)

KEY TABLES:
  HR:      departments, positions, employees, dividends
  Payroll: employees_payroll, departments_payroll, positions_payroll

CONNECTIONS:
  Each store caps its pool at one connection. A Payroll transaction and
  every read it makes share that connection, and ":memory:" databases
  stay a single database. Concurrent callers queue on the pool.

TIME ENCODING:
  Timestamps are RFC3339 text, dates are YYYY-MM-DD text, dividend amounts
  are decimal strings.

MIGRATION:
  Schema is auto-migrated on open.

ERRORS:
  Read paths wrap connection-class failures (closed pool, dropped
  connection, SQLITE_CANTOPEN, SQLITE_BUSY, SQLITE_LOCKED) in
  hr.ErrStoreUnavailable. Everything else is returned as is.

USAGE:
  hrStore, err := sqlite.NewHR("./hr.db")
  payroll, err := sqlite.NewPayroll("./payroll.db")
  engine := reconcile.NewEngine(hrStore, payroll)

SEE ALSO:
  - hr/store.go: Interface definitions
  - hr/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-sync/hr"
)

const dateLayout = "2006-01-02"

// open opens a SQLite database and applies schema.
func open(dsn, schema string) (*sql.DB, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullRef[T ~int](p *T) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func refFrom[T ~int](n sql.NullInt64) *T {
	if !n.Valid {
		return nil
	}
	v := T(n.Int64)
	return &v
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}

func formatDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func parseDate(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s.String)
	return t
}

// storeErr marks errors that mean the database cannot be reached.
func storeErr(err error) error {
	if err == nil || !isUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w: %v", hr.ErrStoreUnavailable, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	// database/sql does not export its closed-pool error.
	if strings.Contains(err.Error(), "sql: database is closed") {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return true
		}
	}
	return false
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// validSavepoint guards savepoint names, which cannot be bound as parameters.
func validSavepoint(name string) error {
	if name == "" {
		return fmt.Errorf("empty savepoint name")
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("invalid savepoint name %q", name)
		}
	}
	return nil
}
