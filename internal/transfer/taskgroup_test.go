package transfer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskGroup_ShutdownAndRestart(t *testing.T) {
	g := NewTaskGroup()

	var finished atomic.Int32
	started := make(chan struct{})
	ok := g.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		finished.Add(1)
	})
	require.True(t, ok)
	<-started

	g.ShutdownAndRestart()
	assert.Equal(t, int32(1), finished.Load(), "restart must wait for running tasks")

	// The fresh scope accepts work again.
	ran := make(chan struct{})
	ok = g.Go(func(context.Context) { close(ran) })
	require.True(t, ok)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run after restart")
	}

	g.Shutdown()
}

func TestTaskGroup_NoCallbacksAfterShutdown(t *testing.T) {
	g := NewTaskGroup()
	g.Shutdown()

	ok := g.Go(func(context.Context) {
		t.Error("task must not run after shutdown")
	})
	assert.False(t, ok)
}

func TestActivityCounter_Edges(t *testing.T) {
	var edges []bool
	c := NewActivityCounter(func(active bool) { edges = append(edges, active) })

	c.Inc()
	c.Inc()
	c.Dec()
	c.Dec()
	c.Inc()

	// Only the idle/busy transitions notify, not every increment.
	assert.Equal(t, []bool{true, false, true}, edges)
	assert.True(t, c.Active())

	c.Dec()
	assert.False(t, c.Active())
}
