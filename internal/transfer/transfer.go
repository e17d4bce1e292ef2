// Package transfer moves attachment files between the local disk and the
// remote storage endpoint. Downloads and uploads run as background tasks
// under a shared TaskGroup; per-file state changes are published through
// a StateFunc and the batch aggregate through BatchProgress.
package transfer

import (
	"context"

	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/models"
)

const chunkSize = 64 * 1024

// StateFunc receives every transfer state change of an attachment. Called
// from transfer goroutines; implementations must be safe for concurrent
// use.
type StateFunc func(att models.Attachment, state models.TransferState)

// storageCoordinator is the slice of the transaction coordinator the
// transfer manager needs to persist file facts.
type storageCoordinator interface {
	PerformWrite(ctx context.Context, req store.WriteRequest) error
}

func transferID(library models.LibraryIdentifier, key string) string {
	return library.String() + "/" + key
}
