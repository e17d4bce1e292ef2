package models

// Collection is a named grouping of items inside a library. Collections
// form a forest per library via ParentKey; the server rejects cycles and
// the client treats any reference that would form one as a root.
type Collection struct {
	Key       string            `json:"key"`
	LibraryID LibraryIdentifier `json:"library_id"`
	Name      string            `json:"name"`

	// ParentKey is the key of the parent collection, or nil for roots.
	ParentKey *string `json:"parent_key,omitempty"`

	Trashed bool `json:"trashed"`
	Version int  `json:"version"`
}
