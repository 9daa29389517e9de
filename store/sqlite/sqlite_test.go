package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/logging"
	"github.com/warp/payroll-sync/reconcile"
	"github.com/warp/payroll-sync/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newStores(t *testing.T) (*sqlite.HRStore, *sqlite.PayrollStore) {
	t.Helper()
	hrStore, err := sqlite.NewHR(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { hrStore.Close() })

	payroll, err := sqlite.NewPayroll(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { payroll.Close() })

	return hrStore, payroll
}

func seedHR(t *testing.T, s *sqlite.HRStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveDepartment(ctx, hr.Department{ID: 1, Name: "IT Department"}))
	require.NoError(t, s.SaveDepartment(ctx, hr.Department{ID: 2, Name: "HR Department"}))
	require.NoError(t, s.SavePosition(ctx, hr.Position{ID: 1, Name: "Senior Developer"}))
	require.NoError(t, s.SavePosition(ctx, hr.Position{ID: 5, Name: "Junior Developer"}))

	require.NoError(t, s.SaveEmployee(ctx, hr.Employee{
		ID: 1, FullName: "Nguyễn Văn An",
		DateOfBirth:  time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:       "Male",
		Email:        "an.nguyen@company.vn",
		HireDate:     time.Date(2020, time.January, 10, 0, 0, 0, 0, time.UTC),
		DepartmentID: hr.DeptRef(1), PositionID: hr.PosRef(1),
		Status: hr.StatusActive,
	}))
	require.NoError(t, s.SaveEmployee(ctx, hr.Employee{
		ID: 3, FullName: "Lê Văn Cường",
		DepartmentID: hr.DeptRef(1), PositionID: hr.PosRef(5),
		Status: hr.StatusActive,
	}))
	require.NoError(t, s.SaveEmployee(ctx, hr.Employee{
		ID: 5, FullName: "Hoàng Văn Em",
		DepartmentID: hr.DeptRef(2),
		Status:       hr.StatusActive,
	}))
}

// =============================================================================
// HR STORE
// =============================================================================

func TestHRStore_EmployeesResolveNames(t *testing.T) {
	hrStore, _ := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	emps, err := hrStore.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, emps, 3)

	assert.Equal(t, hr.EmployeeID(1), emps[0].ID)
	assert.Equal(t, "IT Department", emps[0].DepartmentName)
	assert.Equal(t, "Senior Developer", emps[0].PositionName)
	assert.Equal(t, "1990-05-15", emps[0].DateOfBirth.Format("2006-01-02"))
	assert.False(t, emps[0].CreatedAt.IsZero())

	// Employee 5 has no position
	assert.Nil(t, emps[2].PositionID)
	assert.Empty(t, emps[2].PositionName)
}

func TestHRStore_GetMissingReturnsNil(t *testing.T) {
	hrStore, _ := newStores(t)
	ctx := context.Background()

	e, err := hrStore.GetEmployee(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, e)

	d, err := hrStore.GetDepartment(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, d)

	p, err := hrStore.GetPosition(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestHRStore_DepartmentCounts(t *testing.T) {
	hrStore, _ := newStores(t)
	seedHR(t, hrStore)

	depts, err := hrStore.ListDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, depts, 2)

	assert.Equal(t, "IT Department", depts[0].Name)
	assert.Equal(t, 2, depts[0].EmployeeCount)
	assert.Equal(t, 1, depts[1].EmployeeCount)
}

func TestHRStore_DividendsKeepExactAmounts(t *testing.T) {
	hrStore, _ := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	amount := decimal.RequireFromString("15000000.25")
	require.NoError(t, hrStore.SaveDividend(ctx, hr.Dividend{
		EmployeeID: 1, Amount: amount,
		Date: time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, hrStore.SaveDividend(ctx, hr.Dividend{
		EmployeeID: 3, Amount: decimal.NewFromInt(500),
		Date: time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
	}))

	one := hr.EmployeeID(1)
	divs, err := hrStore.ListDividends(ctx, &one)
	require.NoError(t, err)
	require.Len(t, divs, 1)
	assert.True(t, amount.Equal(divs[0].Amount))
	assert.Equal(t, "Nguyễn Văn An", divs[0].EmployeeName)

	all, err := hrStore.ListDividends(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestHRStore_ResetClearsEverything(t *testing.T) {
	hrStore, _ := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	require.NoError(t, hrStore.Reset(ctx))

	emps, err := hrStore.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, emps)
}

// =============================================================================
// PAYROLL TRANSACTIONS
// =============================================================================

func TestPayrollTx_RollbackToDiscardsOnlyLaterWrites(t *testing.T) {
	_, payroll := newStores(t)
	ctx := context.Background()

	tx, err := payroll.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.PutEmployee(ctx, hr.MirrorEmployee{ID: 1, FullName: "A"}))

	require.NoError(t, tx.Savepoint(ctx, "emp_2"))
	require.NoError(t, tx.PutEmployee(ctx, hr.MirrorEmployee{ID: 2, FullName: "B"}))
	require.NoError(t, tx.PutDepartment(ctx, hr.Department{ID: 9, Name: "Lost"}))

	// Staged writes are visible inside the transaction
	staged, err := tx.GetDepartment(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, staged)

	require.NoError(t, tx.RollbackTo(ctx, "emp_2"))
	require.NoError(t, tx.Release(ctx, "emp_2"))
	require.NoError(t, tx.Commit())

	// Rollback after commit is a no-op
	assert.NoError(t, tx.Rollback())

	rows, err := payroll.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, hr.EmployeeID(1), rows[0].ID)

	d, err := payroll.GetDepartment(ctx, 9)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestPayrollTx_RollbackDiscardsEverything(t *testing.T) {
	_, payroll := newStores(t)
	ctx := context.Background()

	tx, err := payroll.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutEmployee(ctx, hr.MirrorEmployee{ID: 1, FullName: "A"}))
	require.NoError(t, tx.Rollback())

	_, err = tx.GetEmployee(ctx, 1)
	assert.ErrorIs(t, err, hr.ErrTxDone)

	m, err := payroll.GetEmployee(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestPayrollTx_RejectsUnsafeSavepointNames(t *testing.T) {
	_, payroll := newStores(t)
	ctx := context.Background()

	tx, err := payroll.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Error(t, tx.Savepoint(ctx, "x; DROP TABLE employees_payroll"))
	assert.Error(t, tx.Savepoint(ctx, ""))
}

func TestPayrollStore_LookupsAreNeverRenamed(t *testing.T) {
	_, payroll := newStores(t)
	ctx := context.Background()

	require.NoError(t, payroll.SaveDepartment(ctx, hr.Department{ID: 1, Name: "IT"}))
	require.NoError(t, payroll.SaveDepartment(ctx, hr.Department{ID: 1, Name: "IT Department"}))

	d, err := payroll.GetDepartment(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "IT", d.Name)
}

// =============================================================================
// END TO END
// =============================================================================

func TestEngine_OverSQLite(t *testing.T) {
	// GIVEN: HR has three employees; Payroll has a stale copy of employee 5
	hrStore, payroll := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	require.NoError(t, payroll.SaveEmployee(ctx, hr.MirrorEmployee{
		ID: 1, FullName: "Nguyễn Văn An",
		DepartmentID: hr.DeptRef(1), PositionID: hr.PosRef(1),
		Status: hr.StatusActive,
	}))
	require.NoError(t, payroll.SaveEmployee(ctx, hr.MirrorEmployee{
		ID: 5, FullName: "Hoàng Văn Em",
		DepartmentID: hr.DeptRef(7),
		Status:       hr.StatusActive,
	}))

	syncTime := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	engine := reconcile.NewEngine(hrStore, payroll,
		reconcile.WithClock(func() time.Time { return syncTime }),
		reconcile.WithLogger(logging.Nop),
	)

	// WHEN: Checking
	check, err := engine.Check(ctx)
	require.NoError(t, err)

	// THEN: 3 is missing and 5 drifted
	assert.Equal(t, 3, check.Total)
	assert.Equal(t, 1, check.AlreadySynced)
	require.Equal(t, []hr.EmployeeID{3, 5}, check.IDs())
	assert.Equal(t, "DepartmentID: 7 -> 2", check.Actions[1].Reason)

	// WHEN: Syncing the drifted ones
	report := engine.Execute(ctx, check.IDs())

	// THEN: Both synced and lookups were materialized
	assert.True(t, report.Success)
	assert.Equal(t, 2, report.SyncedCount)
	assert.Equal(t, "synced 2/2 employees", report.Message)

	m, err := payroll.GetEmployee(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, hr.PositionID(5), *m.PositionID)
	assert.True(t, syncTime.Equal(m.SyncedAt))

	pos, err := payroll.GetPosition(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "Junior Developer", pos.Name)

	dept, err := payroll.GetDepartment(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, dept)
	assert.Equal(t, "HR Department", dept.Name)

	again, err := engine.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.NeedSync)
}

func TestEngine_OverSQLiteMissingEmployeeIsIsolated(t *testing.T) {
	hrStore, payroll := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	engine := reconcile.NewEngine(hrStore, payroll, reconcile.WithLogger(logging.Nop))
	report := engine.Execute(ctx, []hr.EmployeeID{3, 404})

	assert.False(t, report.Success)
	assert.Equal(t, 1, report.SyncedCount)
	assert.Equal(t, 1, report.FailedCount)
	require.Len(t, report.Details, 2)
	assert.Equal(t, "employee 404 not found in authoritative system", report.Details[1].Message)

	rows, err := payroll.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, hr.EmployeeID(3), rows[0].ID)
}

func TestClosedStores_ReportUnavailable(t *testing.T) {
	hrStore, payroll := newStores(t)
	seedHR(t, hrStore)
	ctx := context.Background()

	// GIVEN: Both databases closed
	require.NoError(t, hrStore.Close())
	require.NoError(t, payroll.Close())

	// THEN: Reads and Begin wrap hr.ErrStoreUnavailable
	_, err := hrStore.ListEmployees(ctx)
	assert.ErrorIs(t, err, hr.ErrStoreUnavailable)

	_, err = hrStore.GetEmployee(ctx, 1)
	assert.ErrorIs(t, err, hr.ErrStoreUnavailable)

	_, err = hrStore.ListDividends(ctx, nil)
	assert.ErrorIs(t, err, hr.ErrStoreUnavailable)

	_, err = payroll.ListEmployees(ctx)
	assert.ErrorIs(t, err, hr.ErrStoreUnavailable)

	_, err = payroll.Begin(ctx)
	assert.ErrorIs(t, err, hr.ErrStoreUnavailable)
}
