package reconcile

import (
	"time"

	"github.com/warp/payroll-sync/hr"
)

// ActionKind is the corrective action detection proposes.
type ActionKind string

const (
	ActionInsert ActionKind = "INSERT"
	ActionUpdate ActionKind = "UPDATE"
	ActionNone   ActionKind = "NONE"
)

// ReasonMissing is the reason given for employees absent from the mirror.
const ReasonMissing = "not present in mirror system"

// Action is one employee that needs syncing.
// Mirror is nil for INSERT actions.
type Action struct {
	EmployeeID    hr.EmployeeID `json:"EmployeeID"`
	FullName      string        `json:"FullName"`
	Kind          ActionKind    `json:"Action"`
	Reason        string        `json:"Reason"`
	Authoritative *Fields       `json:"HRData"`
	Mirror        *Fields       `json:"PayrollData"`
}

// DetectionReport is the result of one drift check.
// Total == AlreadySynced + NeedSync and NeedSync == len(Actions).
type DetectionReport struct {
	Total         int       `json:"TotalEmployees"`
	NeedSync      int       `json:"NeedSync"`
	AlreadySynced int       `json:"AlreadySynced"`
	Actions       []Action  `json:"SyncNeeds"`
	CheckedAt     time.Time `json:"CheckedAt"`
}

// IDs returns the employee identities of every action, in order.
func (r DetectionReport) IDs() []hr.EmployeeID {
	ids := make([]hr.EmployeeID, len(r.Actions))
	for i, a := range r.Actions {
		ids[i] = a.EmployeeID
	}
	return ids
}

// OutcomeStatus is the result of syncing one employee.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is the per-employee result of an execution.
// Action is empty when the employee failed before a branch was chosen.
type Outcome struct {
	EmployeeID hr.EmployeeID `json:"EmployeeID,omitempty"`
	Action     ActionKind    `json:"Action,omitempty"`
	Status     OutcomeStatus `json:"Status"`
	Message    string        `json:"Message"`
}

// ExecutionReport is the result of one sync call.
// Success is true iff every requested employee succeeded.
type ExecutionReport struct {
	RunID       string    `json:"RunID"`
	Success     bool      `json:"Success"`
	Message     string    `json:"Message"`
	SyncedCount int       `json:"SyncedCount"`
	FailedCount int       `json:"FailedCount"`
	Details     []Outcome `json:"Details"`
	SyncedAt    time.Time `json:"SyncedAt"`
}
