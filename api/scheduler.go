/*
scheduler.go - Periodic drift monitor

PURPOSE:
  Periodically runs a drift check between HR and Payroll and logs the
  result. With AutoSync set it also executes a sync for every employee
  the check flags.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks once immediately on Start, then on every tick
  - Start and Stop are idempotent; Stop waits for an in-flight check

CONFIGURATION:
  - Interval: How often to check (default: 15 minutes)
  - AutoSync: Execute flagged employees after each check (default: false)

USAGE:
  monitor := NewDriftMonitor(engine, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - reconcile/engine.go: Check and Execute
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/logging"
	"github.com/warp/payroll-sync/reconcile"
)

// DefaultMonitorInterval is used when Interval is not positive.
const DefaultMonitorInterval = 15 * time.Minute

// Checker is the subset of the engine the monitor drives.
type Checker interface {
	Check(ctx context.Context) (reconcile.DetectionReport, error)
	Execute(ctx context.Context, ids []hr.EmployeeID) reconcile.ExecutionReport
}

// CheckResult is the outcome of one monitor pass.
type CheckResult struct {
	Report reconcile.DetectionReport
	Sync   *reconcile.ExecutionReport
	Err    error
}

// DriftMonitor runs drift checks on a schedule.
type DriftMonitor struct {
	Engine   Checker
	Interval time.Duration
	AutoSync bool

	// OnCheck, when set, receives every pass result.
	OnCheck func(CheckResult)

	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDriftMonitor creates a monitor with the default interval.
func NewDriftMonitor(engine Checker, logger zerolog.Logger) *DriftMonitor {
	return &DriftMonitor{
		Engine:   engine,
		Interval: DefaultMonitorInterval,
		logger:   logger.With().Str("component", "drift_monitor").Logger(),
	}
}

// Start begins the monitor.
func (m *DriftMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.WithLogger(ctx, &m.logger)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)

	go m.run(ctx, interval)

	m.logger.Info().Dur("interval", interval).Bool("auto_sync", m.AutoSync).Msg("drift monitor started")
}

// Stop stops the monitor and waits for the current pass to finish.
func (m *DriftMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.running = false
	m.logger.Info().Msg("drift monitor stopped")
}

func (m *DriftMonitor) run(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	m.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single check (and sync when AutoSync is set).
func (m *DriftMonitor) RunOnce(ctx context.Context) CheckResult {
	var result CheckResult

	report, err := m.Engine.Check(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("drift check failed")
		result.Err = err
		m.emit(result)
		return result
	}
	result.Report = report

	m.logger.Info().
		Int("total", report.Total).
		Int("need_sync", report.NeedSync).
		Int("already_synced", report.AlreadySynced).
		Msg("drift check completed")

	if m.AutoSync && report.NeedSync > 0 {
		executed := m.Engine.Execute(ctx, report.IDs())
		result.Sync = &executed
		m.logger.Info().
			Str("run_id", executed.RunID).
			Int("synced", executed.SyncedCount).
			Int("failed", executed.FailedCount).
			Msg("auto sync completed")
	}

	m.emit(result)
	return result
}

func (m *DriftMonitor) emit(r CheckResult) {
	if m.OnCheck != nil {
		m.OnCheck(r)
	}
}
