package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmvelichko/refsync/internal/api"
	"github.com/dmvelichko/refsync/internal/logger"
	"github.com/dmvelichko/refsync/internal/store"
	"github.com/dmvelichko/refsync/internal/utils"
	"github.com/dmvelichko/refsync/models"
)

var pdfSignature = []byte("%PDF-")

// Ticket is the handle of one enqueued download. Cancel aborts the
// transfer cooperatively; Done is closed once the transfer reached a
// terminal state and its slot was released.
type Ticket struct {
	ID string

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

// Cancel requests cooperative cancellation. The partial file is deleted
// and the attachment ends in the cancelled state; a later enqueue
// restarts the download from zero.
func (t *Ticket) Cancel() {
	t.cancelOnce.Do(func() { close(t.cancelCh) })
}

// Done is closed when the transfer reached a terminal state.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Downloader streams attachment files from the remote storage endpoint
// to the local attachments directory. At most one transfer is active per
// attachment; overall parallelism is capped by the concurrency limit.
type Downloader struct {
	client      api.Client
	coordinator storageCoordinator
	dir         string
	onState     StateFunc
	activity    *ActivityCounter
	batch       *BatchProgress
	group       *TaskGroup
	logger      *logger.Logger

	sem chan struct{}

	mu     sync.Mutex
	active map[string]*Ticket
}

// NewDownloader wires a downloader writing files under dir. concurrency
// caps parallel downloads; values below 1 are treated as 1.
func NewDownloader(
	client api.Client,
	coordinator storageCoordinator,
	dir string,
	concurrency int,
	onState StateFunc,
	activity *ActivityCounter,
	batch *BatchProgress,
	group *TaskGroup,
	log *logger.Logger,
) *Downloader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Downloader{
		client:      client,
		coordinator: coordinator,
		dir:         dir,
		onState:     onState,
		activity:    activity,
		batch:       batch,
		group:       group,
		logger:      log,
		sem:         make(chan struct{}, concurrency),
		active:      make(map[string]*Ticket),
	}
}

// Enqueue starts a background download of the attachment file. While a
// download for the same attachment is active the call is a no-op and
// returns the existing ticket.
func (d *Downloader) Enqueue(att models.Attachment) (*Ticket, error) {
	id := transferID(att.LibraryID, att.Key)

	d.mu.Lock()
	if t, running := d.active[id]; running {
		d.mu.Unlock()
		return t, nil
	}
	t := &Ticket{
		ID:       id,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.active[id] = t
	d.mu.Unlock()

	started := d.group.Go(func(ctx context.Context) {
		d.run(ctx, att, t)
	})
	if !started {
		d.forget(id)
		close(t.done)
		return nil, ErrShuttingDown
	}
	return t, nil
}

// EnqueueDownload starts a background download without tracking the
// ticket. Used by callers that schedule downloads in bulk, like the sync
// run's missing-file pass; interactive callers use Enqueue.
func (d *Downloader) EnqueueDownload(att models.Attachment) error {
	_, err := d.Enqueue(att)
	return err
}

// Cancel aborts the active download of the attachment, if any.
func (d *Downloader) Cancel(library models.LibraryIdentifier, key string) {
	d.mu.Lock()
	t := d.active[transferID(library, key)]
	d.mu.Unlock()
	if t != nil {
		t.Cancel()
	}
}

func (d *Downloader) forget(id string) {
	d.mu.Lock()
	delete(d.active, id)
	d.mu.Unlock()
}

func (d *Downloader) run(ctx context.Context, att models.Attachment, t *Ticket) {
	defer close(t.done)
	defer d.forget(t.ID)

	// Merge the ticket's cancel signal into the scope context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.cancelCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	d.activity.Inc()
	defer d.activity.Dec()

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		d.publish(att, models.Cancelled())
		return
	}

	d.publish(att, models.Downloading(0))

	err := d.download(ctx, att, t.ID)
	switch {
	case err == nil:
		d.publish(att, models.Ready())
	case errors.Is(err, context.Canceled):
		d.publish(att, models.Cancelled())
	default:
		logger.FromContext(ctx).Error().Err(err).
			Str("attachment", t.ID).
			Msg("download failed")
		d.publish(att, models.Failed(err))
	}
}

func (d *Downloader) download(ctx context.Context, att models.Attachment, id string) error {
	body, length, err := d.client.DownloadAttachment(ctx, att.LibraryID, att.Key)
	if err != nil {
		return err
	}
	defer body.Close()

	// Only sized transfers join the aggregate; an unknown length would
	// pin its entry at zero and depress the batch number for its whole
	// duration.
	if length > 0 {
		d.batch.Set(id, 0)
		defer d.batch.Remove(id)
	}

	dir := filepath.Join(d.dir, att.LibraryID.String(), att.Key)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create attachment dir: %w", err)
	}
	finalPath := filepath.Join(dir, att.Filename)
	partPath := finalPath + ".part"

	file, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}

	buf := make([]byte, chunkSize)
	var written int64
	var head []byte

	cleanup := func() {
		file.Close()
		os.Remove(partPath)
	}

	for {
		// Cancellation is checked between chunks, so a cancel lands within
		// one chunk's worth of I/O.
		if err = ctx.Err(); err != nil {
			cleanup()
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if len(head) < len(pdfSignature) {
				head = append(head, buf[:min(n, len(pdfSignature)-len(head))]...)
			}
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				cleanup()
				return fmt.Errorf("write chunk: %w", writeErr)
			}
			written += int64(n)

			if length > 0 {
				pct := int(written * 100 / length)
				d.batch.Set(id, pct)
				d.publish(att, models.Downloading(pct))
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			cleanup()
			return fmt.Errorf("read body: %w", readErr)
		}
	}

	if isPDF(att.ContentType) && !bytes.HasPrefix(head, pdfSignature) {
		cleanup()
		return ErrDownloadNotPDF
	}

	if err = file.Close(); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("close partial file: %w", err)
	}
	if err = os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		return fmt.Errorf("finalize file: %w", err)
	}

	// File facts persist so a later upload authorization can reuse them
	// without rehashing.
	md5sum, mtime, err := utils.FileMD5(finalPath)
	if err != nil {
		return fmt.Errorf("record downloaded file facts: %w", err)
	}
	att.Path = finalPath
	att.MD5 = md5sum
	att.MTime = mtime
	return d.coordinator.PerformWrite(ctx, store.UpdateAttachmentRequest{Attachment: att})
}

func (d *Downloader) publish(att models.Attachment, state models.TransferState) {
	if d.onState != nil {
		att.State = state
		d.onState(att, state)
	}
}

func isPDF(contentType string) bool {
	return strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), "application/pdf")
}
