package store

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/dmvelichko/refsync/models"
)

// builder is the squirrel statement builder configured for SQLite's
// question-mark placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func upsertCollectionQuery(c models.Collection) sq.InsertBuilder {
	return builder.Insert("collections").
		Columns("library_id", "key", "name", "parent_key", "trashed", "version").
		Values(c.LibraryID.String(), c.Key, c.Name, c.ParentKey, c.Trashed, c.Version).
		Suffix(`ON CONFLICT(library_id, key) DO UPDATE SET
			name = excluded.name,
			parent_key = excluded.parent_key,
			trashed = excluded.trashed,
			version = excluded.version`)
}

func upsertSearchQuery(s models.SavedSearch) sq.InsertBuilder {
	return builder.Insert("searches").
		Columns("library_id", "key", "name", "conditions", "version").
		Values(s.LibraryID.String(), s.Key, s.Name, s.Conditions, s.Version).
		Suffix(`ON CONFLICT(library_id, key) DO UPDATE SET
			name = excluded.name,
			conditions = excluded.conditions,
			version = excluded.version`)
}

func upsertItemQuery(it models.Item) (sq.InsertBuilder, error) {
	fields, err := marshalField(it.Fields)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode item %s fields: %w", it.Key, err)
	}
	creators, err := marshalField(it.Creators)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode item %s creators: %w", it.Key, err)
	}
	tags, err := marshalField(it.Tags)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode item %s tags: %w", it.Key, err)
	}
	collections, err := marshalField(it.Collections)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode item %s collections: %w", it.Key, err)
	}

	// A row carrying unsynced local edits is never overwritten by a
	// remote batch: the WHERE clause skips the update, the edit stays
	// flagged, and the uploads phase pushes it so the server's 412 can
	// surface the divergence as a conflict.
	return builder.Insert("items").
		Columns("library_id", "key", "item_type", "version", "date_added", "date_modified",
			"fields", "creators", "tags", "collections", "parent_key", "trashed", "changed_locally").
		Values(it.LibraryID.String(), it.Key, it.Type, it.Version, it.DateAdded, it.DateModified,
			fields, creators, tags, collections, it.ParentKey, it.Trashed, it.ChangedLocally).
		Suffix(`ON CONFLICT(library_id, key) DO UPDATE SET
			item_type = excluded.item_type,
			version = excluded.version,
			date_added = excluded.date_added,
			date_modified = excluded.date_modified,
			fields = excluded.fields,
			creators = excluded.creators,
			tags = excluded.tags,
			collections = excluded.collections,
			parent_key = excluded.parent_key,
			trashed = excluded.trashed,
			changed_locally = excluded.changed_locally
		WHERE changed_locally = 0`), nil
}

func upsertLibraryQuery(lib models.Library) sq.InsertBuilder {
	return builder.Insert("libraries").
		Columns("id", "name", "version", "can_edit_metadata", "can_edit_files").
		Values(lib.ID.String(), lib.Name, lib.Version, lib.CanEditMetadata, lib.CanEditFiles).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			can_edit_metadata = excluded.can_edit_metadata,
			can_edit_files = excluded.can_edit_files`)
}

func upsertVersionQuery(library models.LibraryIdentifier, typ models.ObjectType, version int) sq.InsertBuilder {
	return builder.Insert("versions").
		Columns("library_id", "object_type", "version").
		Values(library.String(), string(typ), version).
		Suffix(`ON CONFLICT(library_id, object_type) DO UPDATE SET
			version = excluded.version`)
}

func marshalField(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
