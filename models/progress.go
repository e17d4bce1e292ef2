package models

// SyncPhase is one stage of the sync state machine.
type SyncPhase int

const (
	PhaseIdle SyncPhase = iota
	PhaseGroups
	PhaseLibraries
	PhaseCollections
	PhaseSearches
	PhaseItems
	PhaseDeletions
	PhaseResolvingConflicts
	PhaseUploads
	PhaseFinished
	PhaseAborted
)

// String returns the phase name used in logs and progress events.
func (p SyncPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGroups:
		return "groups"
	case PhaseLibraries:
		return "libraries"
	case PhaseCollections:
		return "collections"
	case PhaseSearches:
		return "searches"
	case PhaseItems:
		return "items"
	case PhaseDeletions:
		return "deletions"
	case PhaseResolvingConflicts:
		return "resolvingConflicts"
	case PhaseUploads:
		return "uploads"
	case PhaseFinished:
		return "finished"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ProgressSnapshot is one point-in-time view of a running sync, emitted
// on the orchestrator's progress stream. Snapshots are reset at run start
// and never persisted.
type ProgressSnapshot struct {
	Phase       SyncPhase `json:"phase"`
	LibraryName string    `json:"library_name,omitempty"`
	Completed   int       `json:"completed"`
	Total       int       `json:"total"`
}
