package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/models"
)

func TestConflictEngine_AutoResolvesWhenDisplayedItemUnaffected(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())
	lib := models.CustomLibrary(1)

	// The user is looking at item C; the server removed A and B.
	engine.SetDisplayedItem(lib, "CCCC0000")

	res, err := engine.Process(context.Background(), models.ObjectsRemovedRemotely{
		LibraryID: lib,
		Items:     []string{"AAAA0000", "BBBB0000"},
	})
	require.NoError(t, err)

	resolved, ok := res.(models.RemoteDeletionsResolved)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"AAAA0000", "BBBB0000"}, resolved.ToDelete)
	assert.Empty(t, resolved.ToRestore)
	assert.Equal(t, StateResolutionReady, engine.State())
}

func TestConflictEngine_DisplayedItemForcesUserChoice(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())
	lib := models.CustomLibrary(1)

	// The user is looking at item A, which the server removed: the same
	// conflict that auto-resolves otherwise must now wait for a decision.
	engine.SetDisplayedItem(lib, "AAAA0000")

	type result struct {
		res models.Resolution
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := engine.Process(context.Background(), models.ObjectsRemovedRemotely{
			LibraryID: lib,
			Items:     []string{"AAAA0000", "BBBB0000"},
		})
		done <- result{res, err}
	}()

	select {
	case conflict := <-engine.Conflicts():
		removed, ok := conflict.(models.ObjectsRemovedRemotely)
		require.True(t, ok)
		assert.Contains(t, removed.Items, "AAAA0000")
	case <-time.After(time.Second):
		t.Fatal("conflict was not published")
	}
	assert.Equal(t, StateAwaitingUserChoice, engine.State())

	require.NoError(t, engine.DeleteOrRestoreItem(lib, false, "AAAA0000"))

	select {
	case got := <-done:
		require.NoError(t, got.err)
		resolved, ok := got.res.(models.RemoteDeletionsResolved)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"BBBB0000"}, resolved.ToDelete)
		assert.ElementsMatch(t, []string{"AAAA0000"}, resolved.ToRestore)
	case <-time.After(time.Second):
		t.Fatal("Process did not return after resolution")
	}
}

func TestConflictEngine_GroupConflictNeverAutoResolves(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())

	done := make(chan models.Resolution, 1)
	go func() {
		res, err := engine.Process(context.Background(), models.GroupRemoved{GroupID: 5, Name: "Lab"})
		require.NoError(t, err)
		done <- res
	}()

	<-engine.Conflicts()
	require.NoError(t, engine.ResolveGroup(models.MarkGroupLocalOnly{GroupID: 5}))

	select {
	case res := <-done:
		_, ok := res.(models.MarkGroupLocalOnly)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Process did not return after group resolution")
	}
}

func TestConflictEngine_SecondConflictForSameLibraryIsRejected(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())
	lib := models.GroupLibrary(5)

	go func() {
		_, _ = engine.Process(context.Background(), models.GroupRemoved{GroupID: 5, Name: "Lab"})
	}()
	<-engine.Conflicts()

	_, err := engine.Process(context.Background(), models.GroupMetadataWriteDenied{GroupID: 5, Name: "Lab"})
	require.ErrorIs(t, err, ErrConflictSlotBusy)

	// Applying the first conflict frees the slot.
	require.NoError(t, engine.ResolveGroup(models.SkipGroup{GroupID: 5}))
	engine.MarkApplied(lib)
	assert.Equal(t, StateApplied, engine.State())
}

func TestConflictEngine_ProcessHonoursContextCancellation(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Process(ctx, models.RemovedItemsHaveLocalChanges{
			LibraryID: models.CustomLibrary(1),
			Keys:      []string{"AAAA0000"},
		})
		done <- err
	}()

	<-engine.Conflicts()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Process did not return after cancellation")
	}

	// The slot is free again after the drop.
	go func() {
		_, _ = engine.Process(context.Background(), models.RemovedItemsHaveLocalChanges{
			LibraryID: models.CustomLibrary(1),
			Keys:      []string{"BBBB0000"},
		})
	}()
	select {
	case <-engine.Conflicts():
	case <-time.After(time.Second):
		t.Fatal("slot was not released after cancellation")
	}
}

func TestConflictEngine_ResolveLocalChangesWrongKind(t *testing.T) {
	engine := NewConflictEngine(logger.Nop())

	go func() {
		_, _ = engine.Process(context.Background(), models.GroupRemoved{GroupID: 9, Name: "Old"})
	}()
	<-engine.Conflicts()

	err := engine.ResolveLocalChanges(models.GroupLibrary(9), map[string]bool{"AAAA0000": true})
	require.Error(t, err)
}
