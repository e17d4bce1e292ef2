package store

import "errors"

// Sentinel errors returned by coordinator requests and repositories.
// Callers match with [errors.Is]. All three are local and recoverable:
// the caller decides between retry, skip and surface.
var (
	// ErrObjectNotFound is returned when a request targets an object
	// (identified by library and key) that is not in the local store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrPrimaryKeyUnavailable is returned when a creation races with an
	// existing row under the same (library_id, key).
	ErrPrimaryKeyUnavailable = errors.New("primary key unavailable")

	// ErrInvalidRequest is returned when a request is malformed (empty
	// key set, unknown object type, nil payload).
	ErrInvalidRequest = errors.New("invalid request")
)
