package models

// ObjectType enumerates the versioned object kinds the synchronizer
// tracks per library. Within one library the types are processed in a
// fixed order (collections, searches, items, deletions) because items
// reference collections and deletions assume prior object presence.
type ObjectType string

const (
	ObjectCollection ObjectType = "collection"
	ObjectSearch     ObjectType = "search"
	ObjectItem       ObjectType = "item"
	ObjectDeletion   ObjectType = "deletion"
	ObjectGroup      ObjectType = "group"
	ObjectSettings   ObjectType = "settings"
)

// SyncOrder is the per-library processing order for object types.
var SyncOrder = []ObjectType{ObjectCollection, ObjectSearch, ObjectItem, ObjectDeletion}

// VersionLedgerEntry records the last remote version of one object type
// that was fully and transactionally applied to the local store. A zero
// version means the type has never been synced for that library.
type VersionLedgerEntry struct {
	LibraryID  LibraryIdentifier `json:"library_id"`
	ObjectType ObjectType        `json:"object_type"`
	Version    int               `json:"version"`
}

// DeletedKeys is the server's report of keys deleted remotely since a
// given version, grouped by object type.
type DeletedKeys struct {
	Collections []string `json:"collections"`
	Searches    []string `json:"searches"`
	Items       []string `json:"items"`
	Tags        []string `json:"tags"`
}

// Empty reports whether the server deleted nothing in the window.
func (d DeletedKeys) Empty() bool {
	return len(d.Collections) == 0 && len(d.Searches) == 0 &&
		len(d.Items) == 0 && len(d.Tags) == 0
}

// ObjectBatch is one page of fetched remote objects of a single type,
// together with the library version the page was served at. Exactly one
// of the slices is populated, matching Type.
type ObjectBatch struct {
	LibraryID LibraryIdentifier
	Type      ObjectType
	Version   int

	Collections []Collection
	Searches    []SavedSearch
	Items       []Item
}

// Len returns the number of objects in the batch.
func (b ObjectBatch) Len() int {
	switch b.Type {
	case ObjectCollection:
		return len(b.Collections)
	case ObjectSearch:
		return len(b.Searches)
	case ObjectItem:
		return len(b.Items)
	default:
		return 0
	}
}
