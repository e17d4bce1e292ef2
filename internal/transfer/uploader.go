package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmvelichko/refsync/internal/api"
	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/internal/utils"
	"github.com/dmvelichko/refsync/models"
)

// Uploader pushes locally changed attachment files to the remote storage
// endpoint: authorize, stream the multipart body, register. Uploads are
// strictly serialized through a single worker, so at most one upload is
// in flight at any time.
type Uploader struct {
	client      api.Client
	coordinator storageCoordinator
	onState     StateFunc
	activity    *ActivityCounter
	batch       *BatchProgress
	group       *TaskGroup
	logger      *logger.Logger

	queue chan models.Attachment

	mu      sync.Mutex
	looping bool
}

// NewUploader wires an uploader and starts its single worker under the
// task group.
func NewUploader(
	client api.Client,
	coordinator storageCoordinator,
	onState StateFunc,
	activity *ActivityCounter,
	batch *BatchProgress,
	group *TaskGroup,
	log *logger.Logger,
) *Uploader {
	u := &Uploader{
		client:      client,
		coordinator: coordinator,
		onState:     onState,
		activity:    activity,
		batch:       batch,
		group:       group,
		logger:      log,
		queue:       make(chan models.Attachment, 32),
	}
	u.ensureWorker()
	return u
}

// ensureWorker spawns the single worker when none is running. The group
// cancels the worker on shutdown and restart, so every enqueue checks
// again; a fresh scope gets a fresh worker on the first enqueue after it.
func (u *Uploader) ensureWorker() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.looping {
		return
	}
	u.looping = u.group.Go(u.loop)
}

// EnqueueUpload queues an attachment for upload. Blocks only when the
// queue is full; returns the context error if ctx ends first.
func (u *Uploader) EnqueueUpload(ctx context.Context, att models.Attachment) error {
	u.ensureWorker()
	select {
	case u.queue <- att:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (u *Uploader) loop(ctx context.Context) {
	defer func() {
		u.mu.Lock()
		u.looping = false
		u.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case att := <-u.queue:
			u.process(ctx, att)
		}
	}
}

func (u *Uploader) process(ctx context.Context, att models.Attachment) {
	id := transferID(att.LibraryID, att.Key)

	u.activity.Inc()
	defer u.activity.Dec()
	u.batch.Set(id, 0)
	defer u.batch.Remove(id)
	u.publish(att, models.Uploading(0))

	err := u.upload(ctx, att, id)
	switch {
	case err == nil:
		u.publish(att, models.Ready())
	case errors.Is(err, context.Canceled):
		u.publish(att, models.Cancelled())
	default:
		u.logger.Error().Err(err).Str("attachment", id).Msg("upload failed")
		u.publish(att, models.Failed(err))
	}
}

func (u *Uploader) upload(ctx context.Context, att models.Attachment, id string) error {
	// The recorded facts may be stale when the file changed after it was
	// flagged; authorization is always made with the file's current hash.
	md5sum, mtime, err := utils.FileMD5(att.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoLocalFile, att.Path)
		}
		return err
	}
	att.MD5 = md5sum
	att.MTime = mtime

	file, err := os.Open(att.Path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoLocalFile, att.Path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat attachment file: %w", err)
	}

	auth, err := u.client.AuthorizeUpload(ctx, att.LibraryID, att, info.Size())
	if errors.Is(err, api.ErrUploadExists) {
		// The server already holds an identical file: registration is
		// implicit, nothing to transfer. The dirty marker still clears so
		// the file is not re-queued on the next run.
		return u.coordinator.PerformWrite(ctx, store.MarkAttachmentSyncedRequest{
			LibraryID: att.LibraryID,
			Key:       att.Key,
			MD5:       att.MD5,
			MTime:     att.MTime,
		})
	}
	if err != nil {
		return fmt.Errorf("authorize upload: %w", err)
	}

	reader := &progressReader{
		r:     file,
		total: info.Size(),
		report: func(pct int) {
			u.batch.Set(id, pct)
			u.publish(att, models.Uploading(pct))
		},
	}
	if err = u.client.UploadMultipart(ctx, auth, reader); err != nil {
		return fmt.Errorf("upload body: %w", err)
	}

	version, err := u.client.RegisterUpload(ctx, att.LibraryID, att.Key, auth)
	if err != nil {
		return fmt.Errorf("register upload: %w", err)
	}

	return u.coordinator.PerformWrite(ctx, store.UpdateAttachmentRequest{
		Attachment: att,
		Version:    version,
	})
}

func (u *Uploader) publish(att models.Attachment, state models.TransferState) {
	if u.onState != nil {
		att.State = state
		u.onState(att, state)
	}
}

// progressReader reports integer percentages as the wrapped reader is
// consumed.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.report != nil {
		p.report(int(p.read * 100 / p.total))
	}
	return n, err
}
