package transfer

import (
	"context"
	"sync"
)

// scope is one cancellation generation of a TaskGroup. Tasks hold the
// scope they were started under, so a restart never resurrects them.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// TaskGroup runs transfer goroutines under a shared cancellable scope.
// ShutdownAndRestart cancels the scope, waits for every task to return
// and installs a fresh one, so no task outlives the generation it was
// started in and no callback fires after cancellation completed.
type TaskGroup struct {
	mu      sync.Mutex
	current *scope
	closed  bool
}

func NewTaskGroup() *TaskGroup {
	g := &TaskGroup{}
	g.current = newScope()
	return g
}

func newScope() *scope {
	ctx, cancel := context.WithCancel(context.Background())
	return &scope{ctx: ctx, cancel: cancel}
}

// Go starts fn under the current scope. Returns false when the group is
// shut down or mid-restart; fn is not called in that case.
func (g *TaskGroup) Go(fn func(ctx context.Context)) bool {
	g.mu.Lock()
	s := g.current
	if g.closed || s.ctx.Err() != nil {
		g.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return true
}

// ShutdownAndRestart cancels all running tasks, blocks until they have
// returned and opens a fresh scope for subsequent work.
func (g *TaskGroup) ShutdownAndRestart() {
	g.mu.Lock()
	s := g.current
	g.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	g.mu.Lock()
	if g.current == s && !g.closed {
		g.current = newScope()
	}
	g.mu.Unlock()
}

// Shutdown cancels all running tasks and blocks until they returned.
// The group accepts no work afterwards.
func (g *TaskGroup) Shutdown() {
	g.mu.Lock()
	g.closed = true
	s := g.current
	g.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
