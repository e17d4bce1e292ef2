package models

// Conflict is a divergence between local and remote state detected during
// a sync run. Conflicts are ephemeral: they exist only while the run that
// produced them is active.
//
// Implementations are the closed set of types in this file; consumers
// dispatch with a type switch.
type Conflict interface {
	conflict()

	// Library returns the library the conflict belongs to. The orchestrator
	// allows a single in-flight conflict per library.
	Library() LibraryIdentifier
}

// GroupRemoved reports that a group library the user had locally was
// deleted on the server or the user lost access to it.
type GroupRemoved struct {
	GroupID int64
	Name    string
}

// GroupMetadataWriteDenied reports local metadata edits in a group the
// user may no longer edit.
type GroupMetadataWriteDenied struct {
	GroupID int64
	Name    string
}

// GroupFileWriteDenied reports local attachment uploads pending in a
// group the user may no longer upload to.
type GroupFileWriteDenied struct {
	GroupID int64
	Name    string
}

// ObjectsRemovedRemotely reports objects the server deleted while the
// local store still holds them unchanged.
type ObjectsRemovedRemotely struct {
	LibraryID   LibraryIdentifier
	Collections []string
	Items       []string
	Searches    []string
	Tags        []string
}

// RemovedItemsHaveLocalChanges reports server-deleted items that carry
// unsynced local edits. Never auto-resolved.
type RemovedItemsHaveLocalChanges struct {
	LibraryID LibraryIdentifier
	Keys      []string
}

func (GroupRemoved) conflict()                 {}
func (GroupMetadataWriteDenied) conflict()     {}
func (GroupFileWriteDenied) conflict()         {}
func (ObjectsRemovedRemotely) conflict()       {}
func (RemovedItemsHaveLocalChanges) conflict() {}

func (c GroupRemoved) Library() LibraryIdentifier             { return GroupLibrary(c.GroupID) }
func (c GroupMetadataWriteDenied) Library() LibraryIdentifier { return GroupLibrary(c.GroupID) }
func (c GroupFileWriteDenied) Library() LibraryIdentifier     { return GroupLibrary(c.GroupID) }
func (c ObjectsRemovedRemotely) Library() LibraryIdentifier   { return c.LibraryID }
func (c RemovedItemsHaveLocalChanges) Library() LibraryIdentifier {
	return c.LibraryID
}

// Resolution is the decided outcome for a Conflict, mirrored variant by
// variant. The orchestrator applies resolutions as ordinary transactional
// writes before resuming the paused library.
type Resolution interface {
	resolution()

	Library() LibraryIdentifier
}

// DeleteGroup removes the group and all its objects locally.
type DeleteGroup struct {
	GroupID int64
}

// MarkGroupLocalOnly keeps the group's local data but stops syncing it.
type MarkGroupLocalOnly struct {
	GroupID int64
}

// RevertGroupChanges discards uncommitted local changes in the group and
// resumes syncing with the server's state.
type RevertGroupChanges struct {
	GroupID int64
}

// SkipGroup leaves the conflict unresolved for this run; the group's
// pipeline stays suspended until the next run.
type SkipGroup struct {
	GroupID int64
}

// RemoteDeletionsResolved carries the final delete/restore split for an
// ObjectsRemovedRemotely conflict.
type RemoteDeletionsResolved struct {
	LibraryID   LibraryIdentifier
	Collections []string
	Searches    []string
	Tags        []string

	// ToDelete and ToRestore partition the conflicted item keys.
	ToDelete  []string
	ToRestore []string
}

// LocalChangeDecisions carries the per-key verdicts for a
// RemovedItemsHaveLocalChanges conflict: true keeps the local item (and
// re-uploads it), false accepts the remote deletion.
type LocalChangeDecisions struct {
	LibraryID LibraryIdentifier
	KeepLocal map[string]bool
}

func (DeleteGroup) resolution()             {}
func (MarkGroupLocalOnly) resolution()      {}
func (RevertGroupChanges) resolution()      {}
func (SkipGroup) resolution()               {}
func (RemoteDeletionsResolved) resolution() {}
func (LocalChangeDecisions) resolution()    {}

func (r DeleteGroup) Library() LibraryIdentifier             { return GroupLibrary(r.GroupID) }
func (r MarkGroupLocalOnly) Library() LibraryIdentifier      { return GroupLibrary(r.GroupID) }
func (r RevertGroupChanges) Library() LibraryIdentifier      { return GroupLibrary(r.GroupID) }
func (r SkipGroup) Library() LibraryIdentifier               { return GroupLibrary(r.GroupID) }
func (r RemoteDeletionsResolved) Library() LibraryIdentifier { return r.LibraryID }
func (r LocalChangeDecisions) Library() LibraryIdentifier    { return r.LibraryID }
