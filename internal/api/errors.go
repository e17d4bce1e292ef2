package api

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the API client. Callers match with
// [errors.Is]; the orchestrator's version-gating logic depends on the
// exact status codes behind them.
var (
	// ErrNotModified is returned when the server answers 304 to a
	// versioned fetch: nothing changed since the supplied version.
	ErrNotModified = errors.New("remote state not modified")

	// ErrUnauthorized is returned on 401: the API key is missing or
	// revoked. Fatal for the whole run.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrForbidden is returned on 403: the key is valid but lacks access
	// to the library.
	ErrForbidden = errors.New("access to library forbidden")

	// ErrUploadExists is returned when upload authorization reports the
	// server already has an identical file.
	ErrUploadExists = errors.New("file already uploaded")
)

// PreconditionError is returned on 412: the library changed remotely
// since the version the client supplied in If-Unmodified-Since-Version.
// The body carries the server's conflict payload.
type PreconditionError struct {
	LibraryVersion int
	Body           []byte
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed at library version %d", e.LibraryVersion)
}

// NetworkError is any other non-2xx response or transport failure.
// Retryable reports whether the orchestrator should back off and retry.
type NetworkError struct {
	Code int
	Body string
}

func (e *NetworkError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("network error: %s", e.Body)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// Retryable reports whether the failure is transient: transport-level
// errors (code 0), 5xx and 429.
func (e *NetworkError) Retryable() bool {
	return e.Code == 0 || e.Code == 429 || e.Code >= 500
}
