package service

import (
	"errors"
	"fmt"

	"github.com/dmvelichko/refsync/models"
)

var (
	// ErrAlreadyRunning is returned by Orchestrator.Start when a sync run
	// is active. Runs never overlap.
	ErrAlreadyRunning = errors.New("sync run already in progress")

	// ErrVersionRegression is returned when the server reports a library
	// version lower than the local ledger. The API contract forbids this;
	// observing it means local state is unsound, so the run aborts.
	ErrVersionRegression = errors.New("remote version lower than local ledger")

	// ErrConflictSlotBusy is returned when a second conflict is raised
	// for a library whose previous conflict has not been applied yet.
	ErrConflictSlotBusy = errors.New("conflict already in flight for library")
)

// SchemaError reports a remote object the local schema cannot represent.
// Fatal: the run aborts rather than silently dropping data.
type SchemaError struct {
	ObjectType models.ObjectType
	Key        string
	Cause      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema cannot represent %s %q: %v", e.ObjectType, e.Key, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// NonFatalError records a failed unit of work that did not stop the run.
type NonFatalError struct {
	LibraryID  models.LibraryIdentifier
	ObjectType models.ObjectType
	Err        error
}

func (e *NonFatalError) Error() string {
	return fmt.Sprintf("library %s, %s: %v", e.LibraryID, e.ObjectType, e.Err)
}

func (e *NonFatalError) Unwrap() error { return e.Err }

// RunReport is the terminal outcome of a sync run. A finished run always
// reports its NonFatal list, even when empty; an aborted run reports the
// single Fatal cause.
type RunReport struct {
	NonFatal []error
	Fatal    error
}

// Aborted reports whether the run ended in the aborted state.
func (r RunReport) Aborted() bool { return r.Fatal != nil }
