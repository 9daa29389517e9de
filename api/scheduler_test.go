package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/hr/store"
	"github.com/warp/payroll-sync/logging"
	"github.com/warp/payroll-sync/reconcile"
)

type failingChecker struct{}

func (failingChecker) Check(context.Context) (reconcile.DetectionReport, error) {
	return reconcile.DetectionReport{}, errors.New("hr offline")
}

func (failingChecker) Execute(context.Context, []hr.EmployeeID) reconcile.ExecutionReport {
	panic("execute must not run after a failed check")
}

func TestDriftMonitor_RunOnceReportsOnly(t *testing.T) {
	s := newTestServer(t)
	m := NewDriftMonitor(s.handler.Engine, logging.Nop)

	result := m.RunOnce(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Report.NeedSync)
	assert.Nil(t, result.Sync)

	// Nothing was written
	row, err := s.payroll.GetEmployee(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDriftMonitor_AutoSync(t *testing.T) {
	s := newTestServer(t)
	m := NewDriftMonitor(s.handler.Engine, logging.Nop)
	m.AutoSync = true

	result := m.RunOnce(context.Background())

	require.NotNil(t, result.Sync)
	assert.Equal(t, 2, result.Sync.SyncedCount)

	again := m.RunOnce(context.Background())
	assert.Equal(t, 0, again.Report.NeedSync)
	assert.Nil(t, again.Sync)
}

func TestDriftMonitor_CheckError(t *testing.T) {
	m := NewDriftMonitor(failingChecker{}, logging.Nop)
	m.AutoSync = true

	result := m.RunOnce(context.Background())
	assert.EqualError(t, result.Err, "hr offline")
}

func TestDriftMonitor_StartRunsImmediatelyAndStops(t *testing.T) {
	engine := reconcile.NewEngine(store.NewAuthoritative(), store.NewMirror(), reconcile.WithLogger(logging.Nop))
	m := NewDriftMonitor(engine, logging.Nop)
	m.Interval = time.Hour

	var (
		mu     sync.Mutex
		passes int
	)
	done := make(chan struct{}, 1)
	m.OnCheck = func(CheckResult) {
		mu.Lock()
		passes++
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	}

	m.Start()
	m.Start() // idempotent

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not run on start")
	}

	m.Stop()
	m.Stop() // idempotent

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, passes)
}
