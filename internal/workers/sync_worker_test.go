package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/service"
)

// stubOrchestrator counts run triggers without doing any work.
type stubOrchestrator struct {
	calls  atomic.Int32
	report service.RunReport
	err    error
}

func (s *stubOrchestrator) Start(context.Context, int64) (service.RunReport, error) {
	s.calls.Add(1)
	return s.report, s.err
}

func TestSyncWorker_TriggersImmediatelyAndPeriodically(t *testing.T) {
	orch := &stubOrchestrator{}
	w := NewSyncWorker(orch, 7, 20*time.Millisecond, logger.Nop())

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool {
		return orch.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond, "expected the first run plus ticker runs")
}

func TestSyncWorker_StopHaltsTriggers(t *testing.T) {
	orch := &stubOrchestrator{}
	w := NewSyncWorker(orch, 7, 10*time.Millisecond, logger.Nop())

	w.Start(context.Background())
	require.Eventually(t, func() bool { return orch.calls.Load() >= 1 }, time.Second, time.Millisecond)
	w.Stop()

	after := orch.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, orch.calls.Load())
}

func TestSyncWorker_StopWithoutStartIsNoop(t *testing.T) {
	w := NewSyncWorker(&stubOrchestrator{}, 7, time.Minute, logger.Nop())
	w.Stop()
}

func TestSyncWorker_AlreadyRunningIsIgnored(t *testing.T) {
	orch := &stubOrchestrator{err: service.ErrAlreadyRunning}
	w := NewSyncWorker(orch, 7, 10*time.Millisecond, logger.Nop())

	w.Start(context.Background())
	defer w.Stop()

	// The worker keeps ticking even though every trigger is rejected.
	require.Eventually(t, func() bool {
		return orch.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSyncWorker_RestartReplacesLoop(t *testing.T) {
	orch := &stubOrchestrator{}
	w := NewSyncWorker(orch, 7, time.Hour, logger.Nop())

	w.Start(context.Background())
	w.Start(context.Background())
	defer w.Stop()

	// Two immediate runs, one per Start; the hour-long ticker never fires.
	require.Eventually(t, func() bool {
		return orch.calls.Load() == 2
	}, time.Second, time.Millisecond)
}
