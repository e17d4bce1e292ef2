package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/models"
)

// EngineState is the conflict engine's per-conflict state machine.
type EngineState int

const (
	StateIdle EngineState = iota
	StateConflictDetected
	StateAwaitingUserChoice
	StateResolutionReady
	StateApplied
)

// pendingConflict is one conflict waiting for an external decision.
type pendingConflict struct {
	conflict models.Conflict
	resolved chan models.Resolution

	// toDelete/toRestore carry the working partition for
	// ObjectsRemovedRemotely while the user decides.
	toDelete  map[string]bool
	toRestore map[string]bool
}

// ConflictEngine classifies remote/local divergences into typed
// conflicts and decides between automatic and user-gated resolution.
//
// Conflicts needing a decision are published on the Conflicts stream;
// the UI or policy layer must eventually call the matching resolution
// entry point or the affected library's sync stalls. At most one
// conflict is in flight per library.
type ConflictEngine struct {
	logger *logger.Logger

	mu        sync.Mutex
	state     EngineState
	pending   map[string]*pendingConflict // keyed by library identifier
	conflicts chan models.Conflict

	// displayedKey is the externally supplied hint naming the item the
	// UI currently shows, per library.
	displayedKey map[string]string
}

// NewConflictEngine constructs an engine with a buffered conflict
// stream. One engine serves all runs of one orchestrator.
func NewConflictEngine(log *logger.Logger) *ConflictEngine {
	return &ConflictEngine{
		logger:       log,
		state:        StateIdle,
		pending:      make(map[string]*pendingConflict),
		conflicts:    make(chan models.Conflict, 16),
		displayedKey: make(map[string]string),
	}
}

// Conflicts is the stream of conflicts awaiting an external decision.
func (e *ConflictEngine) Conflicts() <-chan models.Conflict {
	return e.conflicts
}

// State returns the engine's current state.
func (e *ConflictEngine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetDisplayedItem records which item the UI currently shows in the
// given library. An empty key clears the hint.
func (e *ConflictEngine) SetDisplayedItem(library models.LibraryIdentifier, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key == "" {
		delete(e.displayedKey, library.String())
		return
	}
	e.displayedKey[library.String()] = key
}

// Process classifies the conflict and blocks until a resolution is
// ready: immediately for auto-resolvable conflicts, after the matching
// resolution call otherwise. Returns ErrConflictSlotBusy when the
// library already has a conflict in flight.
func (e *ConflictEngine) Process(ctx context.Context, conflict models.Conflict) (models.Resolution, error) {
	e.mu.Lock()
	e.state = StateConflictDetected

	lib := conflict.Library().String()
	if _, busy := e.pending[lib]; busy {
		e.state = StateIdle
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrConflictSlotBusy, lib)
	}

	if res, ok := e.tryAutoResolve(conflict); ok {
		e.state = StateResolutionReady
		e.mu.Unlock()
		e.logger.Debug().Str("library", lib).Msg("conflict auto-resolved")
		return res, nil
	}

	p := &pendingConflict{
		conflict: conflict,
		resolved: make(chan models.Resolution, 1),
	}
	if removed, ok := conflict.(models.ObjectsRemovedRemotely); ok {
		p.toDelete = make(map[string]bool, len(removed.Items))
		for _, key := range removed.Items {
			p.toDelete[key] = true
		}
		p.toRestore = make(map[string]bool)
	}
	e.pending[lib] = p
	e.state = StateAwaitingUserChoice
	e.mu.Unlock()

	select {
	case e.conflicts <- conflict:
	case <-ctx.Done():
		e.drop(lib)
		return nil, ctx.Err()
	}

	select {
	case res := <-p.resolved:
		e.mu.Lock()
		e.state = StateResolutionReady
		e.mu.Unlock()
		return res, nil
	case <-ctx.Done():
		e.drop(lib)
		return nil, ctx.Err()
	}
}

// MarkApplied transitions the conflict for the library to applied and
// frees its slot. Called by the orchestrator after the resolution write
// committed, so resolution application and phase resumption stay atomic
// with respect to new conflicts from the same library.
func (e *ConflictEngine) MarkApplied(library models.LibraryIdentifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, library.String())
	e.state = StateApplied
}

// tryAutoResolve returns a resolution for conflicts that need no user
// input. Caller holds e.mu.
func (e *ConflictEngine) tryAutoResolve(conflict models.Conflict) (models.Resolution, bool) {
	removed, ok := conflict.(models.ObjectsRemovedRemotely)
	if !ok {
		// Group conflicts and removed-items-with-local-changes always go
		// to the user: silently discarding local state is unacceptable.
		return nil, false
	}

	// Default partition: everything is deleted. Only the currently
	// displayed item forces a user choice.
	displayed := e.displayedKey[removed.LibraryID.String()]
	for _, key := range removed.Items {
		if key == displayed {
			return nil, false
		}
	}

	return models.RemoteDeletionsResolved{
		LibraryID:   removed.LibraryID,
		Collections: removed.Collections,
		Searches:    removed.Searches,
		Tags:        removed.Tags,
		ToDelete:    removed.Items,
	}, true
}

// DeleteOrRestoreItem answers an awaiting ObjectsRemovedRemotely
// conflict for the library: isDelete false moves key to the restore set.
// The conflict completes once the displayed key has been decided.
func (e *ConflictEngine) DeleteOrRestoreItem(library models.LibraryIdentifier, isDelete bool, key string) error {
	e.mu.Lock()
	p, ok := e.pending[library.String()]
	if !ok || p.toDelete == nil {
		e.mu.Unlock()
		return fmt.Errorf("no removed-objects conflict awaiting choice for %s", library)
	}

	if isDelete {
		p.toDelete[key] = true
		delete(p.toRestore, key)
	} else {
		delete(p.toDelete, key)
		p.toRestore[key] = true
	}

	removed := p.conflict.(models.ObjectsRemovedRemotely)
	res := models.RemoteDeletionsResolved{
		LibraryID:   removed.LibraryID,
		Collections: removed.Collections,
		Searches:    removed.Searches,
		Tags:        removed.Tags,
		ToDelete:    keys(p.toDelete),
		ToRestore:   keys(p.toRestore),
	}
	e.mu.Unlock()

	p.resolved <- res
	return nil
}

// ResolveLocalChanges answers an awaiting RemovedItemsHaveLocalChanges
// conflict with per-key verdicts.
func (e *ConflictEngine) ResolveLocalChanges(library models.LibraryIdentifier, keepLocal map[string]bool) error {
	e.mu.Lock()
	p, ok := e.pending[library.String()]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no local-changes conflict awaiting choice for %s", library)
	}
	if _, isLocal := p.conflict.(models.RemovedItemsHaveLocalChanges); !isLocal {
		return fmt.Errorf("conflict in flight for %s is not a local-changes conflict", library)
	}

	p.resolved <- models.LocalChangeDecisions{LibraryID: library, KeepLocal: keepLocal}
	return nil
}

// ResolveGroup answers an awaiting group-level conflict with the chosen
// resolution (delete locally, mark local-only, revert changes, skip).
func (e *ConflictEngine) ResolveGroup(res models.Resolution) error {
	e.mu.Lock()
	p, ok := e.pending[res.Library().String()]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no group conflict awaiting choice for %s", res.Library())
	}

	p.resolved <- res
	return nil
}

// drop abandons the pending conflict for a library (run cancelled).
func (e *ConflictEngine) drop(lib string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, lib)
	e.state = StateIdle
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
