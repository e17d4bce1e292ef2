package config

import "errors"

// Validation errors returned by StructuredConfig.validate. Callers match
// with [errors.Is].
var (
	// ErrNoBaseURL is returned when the remote API base URL is missing.
	ErrNoBaseURL = errors.New("api base url is required")

	// ErrNoAPIKey is returned when no API key was provided by any source.
	ErrNoAPIKey = errors.New("api key is required")

	// ErrNoUserID is returned when the user identifier is missing or not
	// a positive integer.
	ErrNoUserID = errors.New("user id is required")

	// ErrNoDSN is returned when the local database DSN is missing.
	ErrNoDSN = errors.New("local database dsn is required")

	// ErrNoAttachmentsDir is returned when the attachment directory is
	// missing.
	ErrNoAttachmentsDir = errors.New("attachments directory is required")
)
