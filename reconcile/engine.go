/*
engine.go - Reconciliation engine: drift check and sync execution

PURPOSE:
  Engine binds the Drift Detector and the Sync Executor to an HR store
  (read only) and a Payroll store (the only write target).

EXECUTION:
  Execute copies HR values into Payroll for each requested employee:

    1. Load the HR employee. Missing -> failed outcome, continue.
    2. Load the mirror row through the transaction.
    3. Absent  -> stage a new row (INSERT).
       Present -> overwrite FullName/DepartmentID/PositionID/Status (UPDATE).
       SyncedAt is stamped either way.
    4. Cascade: create the referenced department and position in Payroll
       if no mirror row exists yet. Existing rows are never renamed.

  Every employee runs inside its own savepoint. Any error rolls back to
  the savepoint, records a failed outcome and moves on.

COMMIT:
  All staged writes are committed once, after the loop. If the commit
  fails the whole call is reported as failed: SyncedCount=0,
  FailedCount=len(ids), a single detail describing the error.

CONCURRENCY:
  No locking. Overlapping Execute calls on the same employees are
  last-writer-wins on Payroll.

SEE ALSO:
  - detector.go: Detect
  - hr/store.go: MirrorTx contract
*/
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/logging"
)

// Engine runs drift checks and sync executions.
type Engine struct {
	hr      hr.AuthoritativeReader
	payroll hr.MirrorStore
	now     func() time.Time
	newID   func() string
	logger  *zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for SyncedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = &logger }
}

// NewEngine creates an engine over ready, reachable stores.
func NewEngine(authoritative hr.AuthoritativeReader, mirror hr.MirrorStore, opts ...Option) *Engine {
	e := &Engine{
		hr:      authoritative,
		payroll: mirror,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log(ctx context.Context) *zerolog.Logger {
	if l := logging.FromContext(ctx); l != logging.Default() || e.logger == nil {
		return l
	}
	return e.logger
}

// =============================================================================
// CHECK
// =============================================================================

// Check reads both employee sets and runs Detect.
func (e *Engine) Check(ctx context.Context) (DetectionReport, error) {
	employees, err := e.hr.ListEmployees(ctx)
	if err != nil {
		return DetectionReport{}, fmt.Errorf("list authoritative employees: %w", err)
	}
	mirrored, err := e.payroll.ListEmployees(ctx)
	if err != nil {
		return DetectionReport{}, fmt.Errorf("list mirror employees: %w", err)
	}

	report := Detect(employees, mirrored)
	e.log(ctx).Debug().
		Int("total", report.Total).
		Int("need_sync", report.NeedSync).
		Int("already_synced", report.AlreadySynced).
		Msg("drift check")
	return report, nil
}

// =============================================================================
// EXECUTE
// =============================================================================

// Execute syncs the given employees from HR into Payroll. It never
// returns an error: every failure is reported in the ExecutionReport.
func (e *Engine) Execute(ctx context.Context, ids []hr.EmployeeID) ExecutionReport {
	runID := e.newID()
	logger := e.log(ctx).With().Str("run_id", runID).Logger()

	if len(ids) == 0 {
		return ExecutionReport{
			RunID:    runID,
			Success:  true,
			Message:  "no employees requested",
			Details:  []Outcome{},
			SyncedAt: e.now(),
		}
	}

	tx, err := e.payroll.Begin(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("begin payroll transaction")
		return e.batchFailure(runID, len(ids), fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	report := ExecutionReport{
		RunID:   runID,
		Details: make([]Outcome, 0, len(ids)),
	}

	for i, id := range ids {
		outcome := e.syncOne(ctx, tx, id, fmt.Sprintf("emp_%d", i))
		if outcome.Status == OutcomeSuccess {
			report.SyncedCount++
		} else {
			report.FailedCount++
			logger.Warn().Int("employee_id", int(id)).Str("reason", outcome.Message).Msg("employee sync failed")
		}
		report.Details = append(report.Details, outcome)
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		logger.Error().Err(err).Int("staged", report.SyncedCount).Msg("payroll commit failed, batch rolled back")
		return e.batchFailure(runID, len(ids), fmt.Errorf("%w: %w", hr.ErrCommitFailed, err))
	}

	report.Success = report.FailedCount == 0
	report.Message = fmt.Sprintf("synced %d/%d employees", report.SyncedCount, len(ids))
	report.SyncedAt = e.now()

	logger.Info().
		Int("synced", report.SyncedCount).
		Int("failed", report.FailedCount).
		Msg("sync executed")
	return report
}

// syncOne stages the writes for one employee inside a savepoint.
func (e *Engine) syncOne(ctx context.Context, tx hr.MirrorTx, id hr.EmployeeID, savepoint string) Outcome {
	fail := func(err error) Outcome {
		return Outcome{EmployeeID: id, Status: OutcomeFailed, Message: err.Error()}
	}

	if err := tx.Savepoint(ctx, savepoint); err != nil {
		return fail(fmt.Errorf("savepoint: %w", err))
	}

	outcome, err := e.stage(ctx, tx, id)
	if err != nil {
		if rbErr := tx.RollbackTo(ctx, savepoint); rbErr != nil {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		_ = tx.Release(ctx, savepoint)
		return fail(err)
	}

	if err := tx.Release(ctx, savepoint); err != nil {
		return fail(fmt.Errorf("release savepoint: %w", err))
	}
	return outcome
}

func (e *Engine) stage(ctx context.Context, tx hr.MirrorTx, id hr.EmployeeID) (Outcome, error) {
	src, err := e.hr.GetEmployee(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("load employee %d: %w", id, err)
	}
	if src == nil {
		return Outcome{}, hr.EmployeeNotFound(id)
	}

	existing, err := tx.GetEmployee(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("load mirror employee %d: %w", id, err)
	}

	row := hr.MirrorEmployee{ID: src.ID}
	action, message := ActionInsert, fmt.Sprintf("added %s to mirror system", src.FullName)
	if existing != nil {
		row = *existing
		action, message = ActionUpdate, fmt.Sprintf("updated %s", src.FullName)
	}
	row.FullName = src.FullName
	row.DepartmentID = src.DepartmentID
	row.PositionID = src.PositionID
	row.Status = src.Status
	row.SyncedAt = e.now()

	if err := tx.PutEmployee(ctx, row); err != nil {
		return Outcome{}, fmt.Errorf("write mirror employee %d: %w", id, err)
	}

	if src.DepartmentID != nil {
		if err := e.cascadeDepartment(ctx, tx, *src.DepartmentID); err != nil {
			return Outcome{}, fmt.Errorf("cascade department %d: %w", *src.DepartmentID, err)
		}
	}
	if src.PositionID != nil {
		if err := e.cascadePosition(ctx, tx, *src.PositionID); err != nil {
			return Outcome{}, fmt.Errorf("cascade position %d: %w", *src.PositionID, err)
		}
	}

	return Outcome{EmployeeID: id, Action: action, Status: OutcomeSuccess, Message: message}, nil
}

// =============================================================================
// CASCADE
// =============================================================================

// cascadeDepartment materializes a department in Payroll on first reference.
// A dangling HR reference is skipped.
func (e *Engine) cascadeDepartment(ctx context.Context, tx hr.MirrorTx, id hr.DepartmentID) error {
	existing, err := tx.GetDepartment(ctx, id)
	if err != nil || existing != nil {
		return err
	}
	src, err := e.hr.GetDepartment(ctx, id)
	if err != nil || src == nil {
		return err
	}
	return tx.PutDepartment(ctx, hr.Department{ID: src.ID, Name: src.Name, SyncedAt: e.now()})
}

// cascadePosition materializes a position in Payroll on first reference.
func (e *Engine) cascadePosition(ctx context.Context, tx hr.MirrorTx, id hr.PositionID) error {
	existing, err := tx.GetPosition(ctx, id)
	if err != nil || existing != nil {
		return err
	}
	src, err := e.hr.GetPosition(ctx, id)
	if err != nil || src == nil {
		return err
	}
	return tx.PutPosition(ctx, hr.Position{ID: src.ID, Name: src.Name, SyncedAt: e.now()})
}

func (e *Engine) batchFailure(runID string, n int, err error) ExecutionReport {
	return ExecutionReport{
		RunID:       runID,
		Success:     false,
		Message:     fmt.Sprintf("sync failed: %v", err),
		SyncedCount: 0,
		FailedCount: n,
		Details:     []Outcome{{Status: OutcomeFailed, Message: err.Error()}},
		SyncedAt:    e.now(),
	}
}
