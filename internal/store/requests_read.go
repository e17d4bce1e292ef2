package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/dmvelichko/refsync/models"
)

// ReadVersionsRequest loads the version ledger rows for one library.
// Types with no row report version 0 (never synced).
type ReadVersionsRequest struct {
	LibraryID    models.LibraryIdentifier
	ForceRefresh bool

	Versions map[models.ObjectType]int
}

func (r *ReadVersionsRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadVersionsRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := builder.Select("object_type", "version").
		From("versions").
		Where(sq.Eq{"library_id": r.LibraryID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	r.Versions = make(map[models.ObjectType]int)
	for rows.Next() {
		var typ string
		var version int
		if err = rows.Scan(&typ, &version); err != nil {
			return fmt.Errorf("scan ledger row: %w", err)
		}
		r.Versions[models.ObjectType(typ)] = version
	}

	return rows.Err()
}

// ReadLibrariesRequest loads all known libraries, optionally including
// those the user marked local-only (excluded from sync).
type ReadLibrariesRequest struct {
	IncludeLocalOnly bool
	ForceRefresh     bool

	Libraries []models.Library
}

func (r *ReadLibrariesRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadLibrariesRequest) Process(ctx context.Context, db *sql.DB) error {
	q := builder.Select("id", "name", "version", "can_edit_metadata", "can_edit_files").
		From("libraries").
		OrderBy("name")
	if !r.IncludeLocalOnly {
		q = q.Where(sq.Eq{"local_only": false})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var lib models.Library
		var rawID string
		if err = rows.Scan(&rawID, &lib.Name, &lib.Version, &lib.CanEditMetadata, &lib.CanEditFiles); err != nil {
			return fmt.Errorf("scan library row: %w", err)
		}
		if lib.ID, err = models.ParseLibraryIdentifier(rawID); err != nil {
			return err
		}
		r.Libraries = append(r.Libraries, lib)
	}

	return rows.Err()
}

// ReadCollectionsRequest loads every collection of one library, the
// input of the collection tree reconciler.
type ReadCollectionsRequest struct {
	LibraryID    models.LibraryIdentifier
	ForceRefresh bool

	Collections []models.Collection
}

func (r *ReadCollectionsRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadCollectionsRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := builder.Select("key", "name", "parent_key", "trashed", "version").
		From("collections").
		Where(sq.Eq{"library_id": r.LibraryID.String()}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		c := models.Collection{LibraryID: r.LibraryID}
		if err = rows.Scan(&c.Key, &c.Name, &c.ParentKey, &c.Trashed, &c.Version); err != nil {
			return fmt.Errorf("scan collection row: %w", err)
		}
		r.Collections = append(r.Collections, c)
	}

	return rows.Err()
}

// ReadChangedItemsRequest loads items carrying local edits not yet
// accepted by the server.
type ReadChangedItemsRequest struct {
	LibraryID    models.LibraryIdentifier
	ForceRefresh bool

	Items []models.Item
}

func (r *ReadChangedItemsRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadChangedItemsRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := selectItemsQuery().
		Where(sq.Eq{"library_id": r.LibraryID.String(), "changed_locally": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	r.Items, err = scanItems(rows, r.LibraryID)
	return err
}

// ReadItemRequest loads a single item by key. ErrObjectNotFound when the
// item is absent.
type ReadItemRequest struct {
	LibraryID    models.LibraryIdentifier
	Key          string
	ForceRefresh bool

	Item models.Item
}

func (r *ReadItemRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadItemRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := selectItemsQuery().
		Where(sq.Eq{"library_id": r.LibraryID.String(), "key": r.Key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	items, err := scanItems(rows, r.LibraryID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrObjectNotFound
	}

	r.Item = items[0]
	return nil
}

// ReadPendingUploadsRequest loads attachments whose local files were
// edited since their last transfer. The dirty marker lives on the
// attachment row itself: the item metadata flag is cleared earlier in
// the same phase and cannot serve as the selector.
type ReadPendingUploadsRequest struct {
	LibraryID    models.LibraryIdentifier
	ForceRefresh bool

	Attachments []models.Attachment
}

func (r *ReadPendingUploadsRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadPendingUploadsRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := builder.Select("key", "filename", "content_type", "md5", "mtime", "path").
		From("attachments").
		Where(sq.Eq{"library_id": r.LibraryID.String(), "dirty": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		att := models.Attachment{LibraryID: r.LibraryID}
		if err = rows.Scan(&att.Key, &att.Filename, &att.ContentType, &att.MD5, &att.MTime, &att.Path); err != nil {
			return fmt.Errorf("scan attachment row: %w", err)
		}
		r.Attachments = append(r.Attachments, att)
	}

	return rows.Err()
}

// ReadPendingDownloadsRequest loads attachment items whose file was
// never fetched: there is no attachments row yet, or the row records no
// local path. Identity and content facts come from the item's fields.
type ReadPendingDownloadsRequest struct {
	LibraryID    models.LibraryIdentifier
	ForceRefresh bool

	Attachments []models.Attachment
}

func (r *ReadPendingDownloadsRequest) Refresh() bool { return r.ForceRefresh }

func (r *ReadPendingDownloadsRequest) Process(ctx context.Context, db *sql.DB) error {
	query, args, err := builder.Select("i.key", "i.fields").
		From("items i").
		LeftJoin("attachments a ON a.library_id = i.library_id AND a.key = i.key").
		Where(sq.And{
			sq.Eq{"i.library_id": r.LibraryID.String(), "i.item_type": "attachment", "i.trashed": false},
			sq.Or{sq.Eq{"a.path": nil}, sq.Eq{"a.path": ""}},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return classifySQLiteError(err)
	}
	defer rows.Close()

	for rows.Next() {
		att := models.Attachment{LibraryID: r.LibraryID}
		var rawFields string
		if err = rows.Scan(&att.Key, &rawFields); err != nil {
			return fmt.Errorf("scan pending download row: %w", err)
		}

		var fields map[string]string
		if err = json.Unmarshal([]byte(rawFields), &fields); err != nil {
			return fmt.Errorf("decode item %s fields: %w", att.Key, err)
		}
		att.Filename = fields["filename"]
		att.ContentType = fields["contentType"]
		att.MD5 = fields["md5"]

		// Link-mode or fieldless attachments have no file to fetch.
		if att.Filename == "" {
			continue
		}
		r.Attachments = append(r.Attachments, att)
	}

	return rows.Err()
}

func selectItemsQuery() sq.SelectBuilder {
	return builder.Select("key", "item_type", "version", "date_added", "date_modified",
		"fields", "creators", "tags", "collections", "parent_key", "trashed", "changed_locally").
		From("items")
}

func scanItems(rows *sql.Rows, library models.LibraryIdentifier) ([]models.Item, error) {
	var items []models.Item

	for rows.Next() {
		it := models.Item{LibraryID: library}
		var fields, creators, tags, collections string

		err := rows.Scan(&it.Key, &it.Type, &it.Version, &it.DateAdded, &it.DateModified,
			&fields, &creators, &tags, &collections, &it.ParentKey, &it.Trashed, &it.ChangedLocally)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}

		if err = json.Unmarshal([]byte(fields), &it.Fields); err != nil {
			return nil, fmt.Errorf("decode item %s fields: %w", it.Key, err)
		}
		if err = json.Unmarshal([]byte(creators), &it.Creators); err != nil {
			return nil, fmt.Errorf("decode item %s creators: %w", it.Key, err)
		}
		if err = json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			return nil, fmt.Errorf("decode item %s tags: %w", it.Key, err)
		}
		if err = json.Unmarshal([]byte(collections), &it.Collections); err != nil {
			return nil, fmt.Errorf("decode item %s collections: %w", it.Key, err)
		}

		items = append(items, it)
	}

	return items, rows.Err()
}
