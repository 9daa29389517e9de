package reconcile

import (
	"fmt"
	"strings"

	"github.com/warp/payroll-sync/hr"
)

// Fields is the snapshot of the four compared fields.
type Fields struct {
	FullName     string           `json:"FullName"`
	DepartmentID *hr.DepartmentID `json:"DepartmentID"`
	PositionID   *hr.PositionID   `json:"PositionID"`
	Status       string           `json:"Status"`
}

// FieldsOf snapshots the compared fields of an HR employee.
func FieldsOf(e hr.Employee) Fields {
	return Fields{FullName: e.FullName, DepartmentID: e.DepartmentID, PositionID: e.PositionID, Status: e.Status}
}

// MirrorFieldsOf snapshots the compared fields of a mirror employee.
func MirrorFieldsOf(m hr.MirrorEmployee) Fields {
	return Fields{FullName: m.FullName, DepartmentID: m.DepartmentID, PositionID: m.PositionID, Status: m.Status}
}

// Change is one differing field, rendered "Field: old -> new".
type Change struct {
	Field string
	Old   string
	New   string
}

func (c Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", c.Field, c.Old, c.New)
}

// Diff lists the fields where the mirror differs from HR, in the order
// FullName, DepartmentID, PositionID, Status. Equality is exact.
func Diff(authoritative, mirror Fields) []Change {
	var changes []Change
	if mirror.FullName != authoritative.FullName {
		changes = append(changes, Change{"FullName", mirror.FullName, authoritative.FullName})
	}
	if !sameRef(mirror.DepartmentID, authoritative.DepartmentID) {
		changes = append(changes, Change{"DepartmentID", renderRef(mirror.DepartmentID), renderRef(authoritative.DepartmentID)})
	}
	if !sameRef(mirror.PositionID, authoritative.PositionID) {
		changes = append(changes, Change{"PositionID", renderRef(mirror.PositionID), renderRef(authoritative.PositionID)})
	}
	if mirror.Status != authoritative.Status {
		changes = append(changes, Change{"Status", mirror.Status, authoritative.Status})
	}
	return changes
}

// Reason joins changes the way detection reports them.
func Reason(changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// SyncStatus is the per-employee status shown on the dashboard.
type SyncStatus string

const (
	StatusSynced    SyncStatus = "synced"
	StatusNeedsSync SyncStatus = "needs_sync"
)

// StatusOf classifies an employee against its mirror row (nil if absent)
// with the same rule Detect uses.
func StatusOf(e hr.Employee, m *hr.MirrorEmployee) SyncStatus {
	if m == nil || len(Diff(FieldsOf(e), MirrorFieldsOf(*m))) > 0 {
		return StatusNeedsSync
	}
	return StatusSynced
}

type ref interface {
	~int
}

func sameRef[T ref](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func renderRef[T ref](p *T) string {
	if p == nil {
		return "null"
	}
	return fmt.Sprint(int(*p))
}
