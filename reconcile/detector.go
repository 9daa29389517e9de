/*
detector.go - Drift detection between HR and Payroll

PURPOSE:
  Compares the full HR employee set with the full Payroll mirror set and
  classifies each HR employee:

    not in mirror            -> INSERT
    any compared field differs -> UPDATE ("Field: old -> new, ...")
    all compared fields equal  -> no action, counted as already synced

  Compared fields are FullName, DepartmentID, PositionID and Status.
  Equality is exact: no trimming, no case folding.

ORDERING:
  Actions follow the order of the authoritative slice. Stores list by
  identity ascending, so Engine.Check reports are ordered by identity.

SEE ALSO:
  - compare.go: Field comparison shared with the executor and the API
  - engine.go: Check reads both stores and calls Detect
*/
package reconcile

import (
	"time"

	"github.com/warp/payroll-sync/hr"
)

// Detect classifies every authoritative employee against the mirror set.
// It has no side effects.
func Detect(authoritative []hr.Employee, mirror []hr.MirrorEmployee) DetectionReport {
	byID := make(map[hr.EmployeeID]hr.MirrorEmployee, len(mirror))
	for _, m := range mirror {
		byID[m.ID] = m
	}

	report := DetectionReport{
		Total:   len(authoritative),
		Actions: []Action{},
	}

	for _, e := range authoritative {
		want := FieldsOf(e)

		m, ok := byID[e.ID]
		if !ok {
			report.Actions = append(report.Actions, Action{
				EmployeeID:    e.ID,
				FullName:      e.FullName,
				Kind:          ActionInsert,
				Reason:        ReasonMissing,
				Authoritative: &want,
			})
			report.NeedSync++
			continue
		}

		have := MirrorFieldsOf(m)
		changes := Diff(want, have)
		if len(changes) == 0 {
			report.AlreadySynced++
			continue
		}

		report.Actions = append(report.Actions, Action{
			EmployeeID:    e.ID,
			FullName:      e.FullName,
			Kind:          ActionUpdate,
			Reason:        Reason(changes),
			Authoritative: &want,
			Mirror:        &have,
		})
		report.NeedSync++
	}

	report.CheckedAt = time.Now().UTC()
	return report
}
