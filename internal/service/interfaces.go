package service

import (
	"context"

	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/models"
)

// StorageCoordinator is the slice of the transaction coordinator the
// services need. Satisfied by *store.Coordinator.
type StorageCoordinator interface {
	PerformWrite(ctx context.Context, req store.WriteRequest) error
	PerformWriteBatch(ctx context.Context, reqs ...store.WriteRequest) error
	PerformRead(ctx context.Context, req store.ReadRequest) error
}

// AttachmentUploader is the transfer manager's upload entry point.
// The orchestrator hands over pending uploads during the uploads phase;
// the transfer manager serializes and executes them independently.
type AttachmentUploader interface {
	EnqueueUpload(ctx context.Context, att models.Attachment) error
}

// AttachmentDownloader is the transfer manager's download entry point.
// The orchestrator queues files that were never fetched; the transfers
// run in the background and the run does not wait for them.
type AttachmentDownloader interface {
	EnqueueDownload(att models.Attachment) error
}

// ProgressFunc receives progress snapshots during a run. Snapshots for
// one run arrive in order; delivery is at-least-once.
type ProgressFunc func(models.ProgressSnapshot)
