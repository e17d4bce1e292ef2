package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/service"
)

// syncStarter is the orchestrator entry point the worker drives.
type syncStarter interface {
	Start(ctx context.Context, userID int64) (service.RunReport, error)
}

// SyncWorker triggers a full sync run on a fixed interval. Overlapping
// triggers are harmless: the orchestrator rejects a second run with
// ErrAlreadyRunning and the worker just waits for the next tick.
type SyncWorker struct {
	orchestrator syncStarter
	userID       int64
	interval     time.Duration
	logger       *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncWorker creates a SyncWorker that is idle until Start is called.
// An interval of zero or less defaults to 15 minutes.
func NewSyncWorker(orchestrator syncStarter, userID int64, interval time.Duration, log *logger.Logger) *SyncWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncWorker{
		orchestrator: orchestrator,
		userID:       userID,
		interval:     interval,
		logger:       log,
	}
}

// Run implements Worker: starts periodic syncing under a background
// context.
func (w *SyncWorker) Run() {
	w.Start(context.Background())
}

// Start stops any previously running loop, then launches a background
// goroutine that triggers a sync run every interval. The first run fires
// immediately. The goroutine exits when ctx is cancelled or Stop is
// called.
func (w *SyncWorker) Start(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()

		w.runOnce(loopCtx)

		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				w.runOnce(loopCtx)
			}
		}
	}()
}

// Stop cancels the background goroutine's context and blocks until it
// has fully exited. Safe to call when the worker is not running.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	report, err := w.orchestrator.Start(ctx, w.userID)
	if err != nil {
		w.logger.Debug().Err(err).Msg("periodic sync skipped")
		return
	}
	if report.Aborted() {
		w.logger.Error().Err(report.Fatal).Msg("periodic sync aborted")
		return
	}
	if len(report.NonFatal) > 0 {
		w.logger.Warn().Int("failed_units", len(report.NonFatal)).Msg("periodic sync finished with failures")
	}
}
