package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/reconcile"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func employee(id int, name string, dept, pos int, status string) hr.Employee {
	return hr.Employee{
		ID:           hr.EmployeeID(id),
		FullName:     name,
		DepartmentID: hr.DeptRef(hr.DepartmentID(dept)),
		PositionID:   hr.PosRef(hr.PositionID(pos)),
		Status:       status,
	}
}

func mirrorOf(e hr.Employee) hr.MirrorEmployee {
	return hr.MirrorEmployee{
		ID:           e.ID,
		FullName:     e.FullName,
		DepartmentID: e.DepartmentID,
		PositionID:   e.PositionID,
		Status:       e.Status,
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestDetect_MissingMirrorIsInsert(t *testing.T) {
	// GIVEN: HR has employee 3, Payroll has nobody
	cuong := employee(3, "Lê Văn Cường", 1, 5, "Active")

	// WHEN: Detecting drift
	report := reconcile.Detect([]hr.Employee{cuong}, nil)

	// THEN: One INSERT with only the HR snapshot
	require.Len(t, report.Actions, 1)
	a := report.Actions[0]
	assert.Equal(t, hr.EmployeeID(3), a.EmployeeID)
	assert.Equal(t, "Lê Văn Cường", a.FullName)
	assert.Equal(t, reconcile.ActionInsert, a.Kind)
	assert.Equal(t, "not present in mirror system", a.Reason)
	require.NotNil(t, a.Authoritative)
	assert.Equal(t, reconcile.FieldsOf(cuong), *a.Authoritative)
	assert.Nil(t, a.Mirror)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.NeedSync)
	assert.Equal(t, 0, report.AlreadySynced)
}

func TestDetect_IdenticalPairIsAlreadySynced(t *testing.T) {
	an := employee(1, "Nguyễn Văn An", 1, 1, "Active")

	report := reconcile.Detect([]hr.Employee{an}, []hr.MirrorEmployee{mirrorOf(an)})

	assert.Empty(t, report.Actions)
	assert.Equal(t, 1, report.AlreadySynced)
	assert.Equal(t, 0, report.NeedSync)
}

func TestDetect_DepartmentDriftScenario(t *testing.T) {
	// GIVEN: HR has employee 5 in department 2, Payroll still has department 7
	em := employee(5, "Hoàng Văn Em", 2, 4, "Active")
	stale := mirrorOf(em)
	stale.DepartmentID = hr.DeptRef(7)

	// WHEN
	report := reconcile.Detect([]hr.Employee{em}, []hr.MirrorEmployee{stale})

	// THEN: UPDATE naming exactly the department change
	require.Len(t, report.Actions, 1)
	a := report.Actions[0]
	assert.Equal(t, reconcile.ActionUpdate, a.Kind)
	assert.Equal(t, "DepartmentID: 7 -> 2", a.Reason)
	require.NotNil(t, a.Mirror)
	assert.Equal(t, hr.DepartmentID(7), *a.Mirror.DepartmentID)
	assert.Equal(t, hr.DepartmentID(2), *a.Authoritative.DepartmentID)
}

func TestDetect_SingleFieldReasons(t *testing.T) {
	base := employee(9, "Phạm Thị Dung", 3, 6, "Active")

	tests := []struct {
		name   string
		mutate func(m *hr.MirrorEmployee)
		reason string
	}{
		{"full name", func(m *hr.MirrorEmployee) { m.FullName = "Pham Thi Dung" }, "FullName: Pham Thi Dung -> Phạm Thị Dung"},
		{"position", func(m *hr.MirrorEmployee) { m.PositionID = hr.PosRef(2) }, "PositionID: 2 -> 6"},
		{"status", func(m *hr.MirrorEmployee) { m.Status = "Inactive" }, "Status: Inactive -> Active"},
		{"department cleared", func(m *hr.MirrorEmployee) { m.DepartmentID = nil }, "DepartmentID: null -> 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mirrorOf(base)
			tt.mutate(&m)

			report := reconcile.Detect([]hr.Employee{base}, []hr.MirrorEmployee{m})

			require.Len(t, report.Actions, 1)
			assert.Equal(t, tt.reason, report.Actions[0].Reason)
		})
	}
}

func TestDetect_MultipleChangesJoinedInFieldOrder(t *testing.T) {
	e := employee(4, "Trần Thị Bình", 2, 3, "Active")
	m := mirrorOf(e)
	m.Status = "On Leave"
	m.FullName = "Tran Thi Binh"
	m.PositionID = hr.PosRef(8)

	report := reconcile.Detect([]hr.Employee{e}, []hr.MirrorEmployee{m})

	require.Len(t, report.Actions, 1)
	assert.Equal(t,
		"FullName: Tran Thi Binh -> Trần Thị Bình, PositionID: 8 -> 3, Status: On Leave -> Active",
		report.Actions[0].Reason)
}

func TestDetect_ComparisonIsExact(t *testing.T) {
	// Case and trailing whitespace both count as drift.
	e := employee(1, "An", 1, 1, "Active")
	m := mirrorOf(e)
	m.FullName = "An "
	m.Status = "active"

	report := reconcile.Detect([]hr.Employee{e}, []hr.MirrorEmployee{m})

	require.Len(t, report.Actions, 1)
	assert.Equal(t, "FullName: An  -> An, Status: active -> Active", report.Actions[0].Reason)
}

func TestDetect_NilReferencesOnBothSidesAreEqual(t *testing.T) {
	e := hr.Employee{ID: 7, FullName: "Unassigned", Status: "Active"}
	m := hr.MirrorEmployee{ID: 7, FullName: "Unassigned", Status: "Active"}

	report := reconcile.Detect([]hr.Employee{e}, []hr.MirrorEmployee{m})

	assert.Empty(t, report.Actions)
	assert.Equal(t, 1, report.AlreadySynced)
}

// =============================================================================
// COUNTS AND ORDER
// =============================================================================

func TestDetect_CountsAndOrder(t *testing.T) {
	// GIVEN: a mix of synced, missing and drifted employees
	synced := employee(1, "A", 1, 1, "Active")
	missing := employee(2, "B", 1, 1, "Active")
	drifted := employee(3, "C", 1, 1, "Active")
	alsoSynced := employee(4, "D", 2, 2, "Active")
	driftedMirror := mirrorOf(drifted)
	driftedMirror.Status = "Inactive"

	// The mirror also holds a row HR no longer has; it is ignored.
	orphan := hr.MirrorEmployee{ID: 99, FullName: "Ghost"}

	authoritative := []hr.Employee{missing, synced, drifted, alsoSynced}
	mirror := []hr.MirrorEmployee{orphan, driftedMirror, mirrorOf(alsoSynced), mirrorOf(synced)}

	// WHEN
	report := reconcile.Detect(authoritative, mirror)

	// THEN: counts add up, actions keep the authoritative order
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.NeedSync)
	assert.Equal(t, 2, report.AlreadySynced)
	assert.Equal(t, report.Total, report.AlreadySynced+report.NeedSync)
	assert.Equal(t, report.NeedSync, len(report.Actions))
	assert.Equal(t, []hr.EmployeeID{2, 3}, report.IDs())
	assert.Equal(t, reconcile.ActionInsert, report.Actions[0].Kind)
	assert.Equal(t, reconcile.ActionUpdate, report.Actions[1].Kind)
	assert.False(t, report.CheckedAt.IsZero())
}

func TestDetect_EmptyInputs(t *testing.T) {
	report := reconcile.Detect(nil, nil)

	assert.Equal(t, 0, report.Total)
	assert.NotNil(t, report.Actions)
	assert.Empty(t, report.Actions)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatusOf(t *testing.T) {
	e := employee(1, "A", 1, 1, "Active")
	m := mirrorOf(e)

	assert.Equal(t, reconcile.StatusNeedsSync, reconcile.StatusOf(e, nil))
	assert.Equal(t, reconcile.StatusSynced, reconcile.StatusOf(e, &m))

	m.FullName = "B"
	assert.Equal(t, reconcile.StatusNeedsSync, reconcile.StatusOf(e, &m))
}
