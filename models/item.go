package models

import "time"

// Creator is one entry of an item's ordered creator list.
type Creator struct {
	Type      string `json:"creatorType"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Tag is a user- or importer-assigned label on an item.
type Tag struct {
	Name string `json:"tag"`
	Type int    `json:"type,omitempty"`
}

// Item is the central object of a library: a bibliographic entry, a note
// or an attachment. Version increases monotonically with every write the
// server accepts.
type Item struct {
	Key       string            `json:"key"`
	LibraryID LibraryIdentifier `json:"library_id"`
	Type      string            `json:"itemType"`
	Version   int               `json:"version"`

	DateAdded    time.Time `json:"dateAdded"`
	DateModified time.Time `json:"dateModified"`

	// Fields maps field keys (title, abstractNote, ...) to their values.
	Fields map[string]string `json:"fields"`

	Creators []Creator `json:"creators,omitempty"`
	Tags     []Tag     `json:"tags,omitempty"`

	// Collections lists the keys of collections this item belongs to.
	Collections []string `json:"collections,omitempty"`

	// ParentKey links attachments and notes to their parent item.
	ParentKey *string `json:"parent_key,omitempty"`

	Trashed bool `json:"trashed"`

	// ChangedLocally marks items with local edits not yet accepted by the
	// server. Remote deletions never silently discard such items.
	ChangedLocally bool `json:"-"`
}

// SavedSearch is a persisted item query synchronized like any other
// versioned object.
type SavedSearch struct {
	Key       string            `json:"key"`
	LibraryID LibraryIdentifier `json:"library_id"`
	Name      string            `json:"name"`
	Version   int               `json:"version"`

	// Conditions is the raw JSON of the search conditions; the client
	// stores it opaquely and only the server evaluates it.
	Conditions []byte `json:"conditions,omitempty"`
}
