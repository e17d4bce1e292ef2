package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/dmvelichko/refsync/models"
)

// StoreBatchRequest writes one fetched object batch and advances the
// version ledger for its (library, type) to the batch version — in the
// same transaction, so the ledger can never point past uncommitted data.
type StoreBatchRequest struct {
	Batch models.ObjectBatch
}

func (r StoreBatchRequest) Process(ctx context.Context, tx *sql.Tx) error {
	switch r.Batch.Type {
	case models.ObjectCollection:
		for _, c := range r.Batch.Collections {
			if err := execBuilder(ctx, tx, upsertCollectionQuery(c)); err != nil {
				return fmt.Errorf("store collection %s: %w", c.Key, err)
			}
		}
	case models.ObjectSearch:
		for _, s := range r.Batch.Searches {
			if err := execBuilder(ctx, tx, upsertSearchQuery(s)); err != nil {
				return fmt.Errorf("store search %s: %w", s.Key, err)
			}
		}
	case models.ObjectItem:
		for _, it := range r.Batch.Items {
			q, err := upsertItemQuery(it)
			if err != nil {
				return err
			}
			if err := execBuilder(ctx, tx, q); err != nil {
				return fmt.Errorf("store item %s: %w", it.Key, err)
			}
		}
	default:
		return fmt.Errorf("%w: batch type %q is not storable", ErrInvalidRequest, r.Batch.Type)
	}

	return execBuilder(ctx, tx, upsertVersionQuery(r.Batch.LibraryID, r.Batch.Type, r.Batch.Version))
}

// StoreLibrariesRequest upserts group library metadata fetched during
// the groups phase.
type StoreLibrariesRequest struct {
	Libraries []models.Library
}

func (r StoreLibrariesRequest) Process(ctx context.Context, tx *sql.Tx) error {
	for _, lib := range r.Libraries {
		if err := execBuilder(ctx, tx, upsertLibraryQuery(lib)); err != nil {
			return fmt.Errorf("store library %s: %w", lib.ID, err)
		}
	}
	return nil
}

// UpdateVersionRequest advances the ledger for one (library, type). Used
// on its own only for the deletions phase, whose deletes ride in the
// same transaction via PerformDeletionsRequest.
type UpdateVersionRequest struct {
	LibraryID  models.LibraryIdentifier
	ObjectType models.ObjectType
	Version    int
}

func (r UpdateVersionRequest) Process(ctx context.Context, tx *sql.Tx) error {
	return execBuilder(ctx, tx, upsertVersionQuery(r.LibraryID, r.ObjectType, r.Version))
}

// PerformDeletionsRequest applies server-reported deletions locally and
// advances the deletions ledger to Version. Keys with unsynced local
// changes must be filtered out by the caller before building the request.
type PerformDeletionsRequest struct {
	LibraryID models.LibraryIdentifier
	Deleted   models.DeletedKeys
	Version   int
}

func (r PerformDeletionsRequest) Process(ctx context.Context, tx *sql.Tx) error {
	lib := r.LibraryID.String()

	if len(r.Deleted.Collections) > 0 {
		q := builder.Delete("collections").
			Where(sq.Eq{"library_id": lib, "key": r.Deleted.Collections})
		if err := execBuilder(ctx, tx, q); err != nil {
			return fmt.Errorf("delete collections: %w", err)
		}
	}
	if len(r.Deleted.Searches) > 0 {
		q := builder.Delete("searches").
			Where(sq.Eq{"library_id": lib, "key": r.Deleted.Searches})
		if err := execBuilder(ctx, tx, q); err != nil {
			return fmt.Errorf("delete searches: %w", err)
		}
	}
	if len(r.Deleted.Items) > 0 {
		q := builder.Delete("items").
			Where(sq.Eq{"library_id": lib, "key": r.Deleted.Items})
		if err := execBuilder(ctx, tx, q); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}

	// Version 0 marks deletions applied as part of a conflict resolution
	// rather than a deletions fetch; the ledger stays where it is.
	if r.Version == 0 {
		return nil
	}
	return execBuilder(ctx, tx, upsertVersionQuery(r.LibraryID, models.ObjectDeletion, r.Version))
}

// MarkItemsSyncedRequest clears the local-change flag and records the
// server-accepted version after a successful upload of local edits.
type MarkItemsSyncedRequest struct {
	LibraryID models.LibraryIdentifier
	Keys      []string
	Version   int
}

func (r MarkItemsSyncedRequest) Process(ctx context.Context, tx *sql.Tx) error {
	if len(r.Keys) == 0 {
		return fmt.Errorf("%w: no keys to mark synced", ErrInvalidRequest)
	}

	q := builder.Update("items").
		Set("changed_locally", false).
		Set("version", r.Version).
		Where(sq.Eq{"library_id": r.LibraryID.String(), "key": r.Keys})
	return execBuilder(ctx, tx, q)
}

// RestoreItemsRequest re-flags items as locally changed so the next run
// re-uploads them; used when a conflict resolution restores items the
// server deleted.
type RestoreItemsRequest struct {
	LibraryID models.LibraryIdentifier
	Keys      []string
}

func (r RestoreItemsRequest) Process(ctx context.Context, tx *sql.Tx) error {
	if len(r.Keys) == 0 {
		return fmt.Errorf("%w: no keys to restore", ErrInvalidRequest)
	}

	// Version 0 forces the next write to be treated as a fresh object on
	// the server side.
	q := builder.Update("items").
		Set("changed_locally", true).
		Set("version", 0).
		Where(sq.Eq{"library_id": r.LibraryID.String(), "key": r.Keys})
	return execBuilder(ctx, tx, q)
}

// DeleteGroupRequest removes a group library and all its local objects.
type DeleteGroupRequest struct {
	GroupID int64
}

func (r DeleteGroupRequest) Process(ctx context.Context, tx *sql.Tx) error {
	lib := models.GroupLibrary(r.GroupID).String()

	for _, table := range []string{"items", "collections", "searches", "versions"} {
		q := builder.Delete(table).Where(sq.Eq{"library_id": lib})
		if err := execBuilder(ctx, tx, q); err != nil {
			return fmt.Errorf("delete group %s from %s: %w", lib, table, err)
		}
	}

	q := builder.Delete("libraries").Where(sq.Eq{"id": lib})
	return execBuilder(ctx, tx, q)
}

// MarkGroupLocalOnlyRequest stops syncing a group while keeping its
// local data.
type MarkGroupLocalOnlyRequest struct {
	GroupID int64
}

func (r MarkGroupLocalOnlyRequest) Process(ctx context.Context, tx *sql.Tx) error {
	q := builder.Update("libraries").
		Set("local_only", true).
		Where(sq.Eq{"id": models.GroupLibrary(r.GroupID).String()})
	return execBuilder(ctx, tx, q)
}

// RevertGroupChangesRequest discards uncommitted local edits in a group
// so the next run re-downloads the server's state.
type RevertGroupChangesRequest struct {
	GroupID int64
}

func (r RevertGroupChangesRequest) Process(ctx context.Context, tx *sql.Tx) error {
	lib := models.GroupLibrary(r.GroupID).String()

	// Dropping the changed rows and rewinding the item ledger makes the
	// next fetch bring back the server's copies.
	q := builder.Delete("items").
		Where(sq.Eq{"library_id": lib, "changed_locally": true})
	if err := execBuilder(ctx, tx, q); err != nil {
		return fmt.Errorf("revert group %s: %w", lib, err)
	}

	return execBuilder(ctx, tx, upsertVersionQuery(models.GroupLibrary(r.GroupID), models.ObjectItem, 0))
}

// UpdateAttachmentRequest records local file facts (path, md5, mtime)
// and the registered version after a transfer completes. A completed
// transfer reconciles the file with the server, so the dirty marker is
// cleared.
type UpdateAttachmentRequest struct {
	Attachment models.Attachment
	Version    int
}

func (r UpdateAttachmentRequest) Process(ctx context.Context, tx *sql.Tx) error {
	att := r.Attachment
	q := builder.Insert("attachments").
		Columns("library_id", "key", "filename", "content_type", "md5", "mtime", "path", "version", "dirty").
		Values(att.LibraryID.String(), att.Key, att.Filename, att.ContentType, att.MD5, att.MTime, att.Path, r.Version, false).
		Suffix(`ON CONFLICT(library_id, key) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			md5 = excluded.md5,
			mtime = excluded.mtime,
			path = excluded.path,
			version = excluded.version,
			dirty = 0`)
	return execBuilder(ctx, tx, q)
}

// MarkAttachmentDirtyRequest flags an attachment file as edited locally
// since its last transfer, recording the new content facts. Dirty files
// are picked up by the next run's uploads phase regardless of the state
// of the item's metadata flag.
type MarkAttachmentDirtyRequest struct {
	LibraryID models.LibraryIdentifier
	Key       string
	MD5       string
	MTime     int64
}

func (r MarkAttachmentDirtyRequest) Process(ctx context.Context, tx *sql.Tx) error {
	q := builder.Update("attachments").
		Set("md5", r.MD5).
		Set("mtime", r.MTime).
		Set("dirty", true).
		Where(sq.Eq{"library_id": r.LibraryID.String(), "key": r.Key})
	return execBuilder(ctx, tx, q)
}

// MarkAttachmentSyncedRequest clears the dirty marker without touching
// the registered version. Used when upload authorization reports the
// server already holds the file's current content.
type MarkAttachmentSyncedRequest struct {
	LibraryID models.LibraryIdentifier
	Key       string
	MD5       string
	MTime     int64
}

func (r MarkAttachmentSyncedRequest) Process(ctx context.Context, tx *sql.Tx) error {
	q := builder.Update("attachments").
		Set("md5", r.MD5).
		Set("mtime", r.MTime).
		Set("dirty", false).
		Where(sq.Eq{"library_id": r.LibraryID.String(), "key": r.Key})
	return execBuilder(ctx, tx, q)
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func execBuilder(ctx context.Context, tx *sql.Tx, q sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return classifySQLiteError(err)
	}
	return nil
}
