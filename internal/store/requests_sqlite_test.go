package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/migrations"
	"github.com/dmvelichko/refsync/models"
)

// newSQLiteCoordinator runs the requests against a real in-memory SQLite
// database with the full schema applied, so the upsert conflict clauses
// are exercised for real instead of being pattern-matched.
func newSQLiteCoordinator(t *testing.T) *Coordinator {
	t.Helper()

	raw, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	// Each pooled connection would get its own empty in-memory database.
	raw.SetMaxOpenConns(1)

	require.NoError(t, migrations.Migrate(raw))
	return NewCoordinator(&DB{DB: raw, logger: logger.Nop()}, logger.Nop())
}

func testStoreItem(lib models.LibraryIdentifier, key, title string, version int) models.Item {
	return models.Item{
		Key:          key,
		LibraryID:    lib,
		Type:         "journalArticle",
		Version:      version,
		DateAdded:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		DateModified: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Fields:       map[string]string{"title": title},
	}
}

func TestStoreBatch_RemoteBatchPreservesLocalEdits(t *testing.T) {
	c := newSQLiteCoordinator(t)
	ctx := context.Background()
	lib := models.CustomLibrary(1)

	edited := testStoreItem(lib, "ITEM0001", "my local edit", 10)
	edited.ChangedLocally = true
	clean := testStoreItem(lib, "ITEM0002", "old title", 10)
	require.NoError(t, c.PerformWrite(ctx, StoreBatchRequest{Batch: models.ObjectBatch{
		LibraryID: lib, Type: models.ObjectItem, Version: 10,
		Items: []models.Item{edited, clean},
	}}))

	// The server sends newer copies of both items. Only the clean row may
	// be replaced; the edited one still has to reach the uploads phase.
	require.NoError(t, c.PerformWrite(ctx, StoreBatchRequest{Batch: models.ObjectBatch{
		LibraryID: lib, Type: models.ObjectItem, Version: 12,
		Items: []models.Item{
			testStoreItem(lib, "ITEM0001", "remote edit", 12),
			testStoreItem(lib, "ITEM0002", "new title", 12),
		},
	}}))

	changed := &ReadChangedItemsRequest{LibraryID: lib}
	require.NoError(t, c.PerformRead(ctx, changed))
	require.Len(t, changed.Items, 1)
	assert.Equal(t, "ITEM0001", changed.Items[0].Key)
	assert.Equal(t, "my local edit", changed.Items[0].Fields["title"])
	assert.Equal(t, 10, changed.Items[0].Version)

	item := &ReadItemRequest{LibraryID: lib, Key: "ITEM0002"}
	require.NoError(t, c.PerformRead(ctx, item))
	assert.Equal(t, "new title", item.Item.Fields["title"])
	assert.Equal(t, 12, item.Item.Version)
	assert.False(t, item.Item.ChangedLocally)
}

func TestAttachmentDirtyMarker_SurvivesMetadataSync(t *testing.T) {
	c := newSQLiteCoordinator(t)
	ctx := context.Background()
	lib := models.CustomLibrary(1)

	item := testStoreItem(lib, "ATTA0001", "", 10)
	item.Type = "attachment"
	item.ChangedLocally = true
	item.Fields = map[string]string{"filename": "paper.pdf"}
	require.NoError(t, c.PerformWrite(ctx, StoreBatchRequest{Batch: models.ObjectBatch{
		LibraryID: lib, Type: models.ObjectItem, Version: 10,
		Items: []models.Item{item},
	}}))

	att := models.Attachment{
		LibraryID: lib, Key: "ATTA0001",
		Filename: "paper.pdf", ContentType: "application/pdf",
		MD5: "aaa", MTime: 1700000000000, Path: "/data/paper.pdf",
	}
	require.NoError(t, c.PerformWrite(ctx, UpdateAttachmentRequest{Attachment: att, Version: 10}))

	pending := &ReadPendingUploadsRequest{LibraryID: lib}
	require.NoError(t, c.PerformRead(ctx, pending))
	assert.Empty(t, pending.Attachments)

	require.NoError(t, c.PerformWrite(ctx, MarkAttachmentDirtyRequest{
		LibraryID: lib, Key: "ATTA0001", MD5: "bbb", MTime: 1700000001000,
	}))

	// Metadata syncing clears the item flag first; the file must still be
	// queued afterwards.
	require.NoError(t, c.PerformWrite(ctx, MarkItemsSyncedRequest{
		LibraryID: lib, Keys: []string{"ATTA0001"}, Version: 13,
	}))

	pending = &ReadPendingUploadsRequest{LibraryID: lib}
	require.NoError(t, c.PerformRead(ctx, pending))
	require.Len(t, pending.Attachments, 1)
	assert.Equal(t, "ATTA0001", pending.Attachments[0].Key)
	assert.Equal(t, "bbb", pending.Attachments[0].MD5)
	assert.Equal(t, "/data/paper.pdf", pending.Attachments[0].Path)

	require.NoError(t, c.PerformWrite(ctx, MarkAttachmentSyncedRequest{
		LibraryID: lib, Key: "ATTA0001", MD5: "bbb", MTime: 1700000001000,
	}))

	pending = &ReadPendingUploadsRequest{LibraryID: lib}
	require.NoError(t, c.PerformRead(ctx, pending))
	assert.Empty(t, pending.Attachments)
}

func TestReadPendingDownloads_SelectsFilelessAttachments(t *testing.T) {
	c := newSQLiteCoordinator(t)
	ctx := context.Background()
	lib := models.CustomLibrary(1)

	missing := testStoreItem(lib, "ATTA0001", "", 10)
	missing.Type = "attachment"
	missing.Fields = map[string]string{
		"filename": "paper.pdf", "contentType": "application/pdf", "md5": "abc",
	}

	fetched := testStoreItem(lib, "ATTA0002", "", 10)
	fetched.Type = "attachment"
	fetched.Fields = map[string]string{"filename": "notes.pdf"}

	linked := testStoreItem(lib, "ATTA0003", "", 10)
	linked.Type = "attachment"
	linked.Fields = map[string]string{"url": "https://example.org/paper"}

	trashed := testStoreItem(lib, "ATTA0004", "", 10)
	trashed.Type = "attachment"
	trashed.Fields = map[string]string{"filename": "gone.pdf"}
	trashed.Trashed = true

	article := testStoreItem(lib, "ITEM0001", "an article", 10)

	require.NoError(t, c.PerformWrite(ctx, StoreBatchRequest{Batch: models.ObjectBatch{
		LibraryID: lib, Type: models.ObjectItem, Version: 10,
		Items: []models.Item{missing, fetched, linked, trashed, article},
	}}))
	require.NoError(t, c.PerformWrite(ctx, UpdateAttachmentRequest{
		Attachment: models.Attachment{
			LibraryID: lib, Key: "ATTA0002", Filename: "notes.pdf",
			Path: "/data/notes.pdf",
		},
		Version: 10,
	}))

	req := &ReadPendingDownloadsRequest{LibraryID: lib}
	require.NoError(t, c.PerformRead(ctx, req))

	// Only the stored-file attachment without a local copy qualifies:
	// fetched files, link-mode rows, trashed rows and plain items stay out.
	require.Len(t, req.Attachments, 1)
	got := req.Attachments[0]
	assert.Equal(t, "ATTA0001", got.Key)
	assert.Equal(t, "paper.pdf", got.Filename)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, "abc", got.MD5)
}
