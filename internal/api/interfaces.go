package api

import (
	"context"
	"io"

	"github.com/dmvelichko/refsync/models"
)

// Client is the remote library service seen by the synchronizer. One
// implementation exists (the resty HTTP client); the interface keeps the
// service layer mockable.
type Client interface {
	// Groups fetches the group libraries visible to userID together with
	// their current versions.
	Groups(ctx context.Context, userID int64) ([]models.Library, error)

	// Fetch requests all objects of one type changed since the given
	// version. A server-side 304 surfaces as ErrNotModified; on success
	// the batch carries the new library version from the
	// Last-Modified-Version header.
	Fetch(ctx context.Context, library models.LibraryIdentifier, typ models.ObjectType, since int) (models.ObjectBatch, error)

	// Deletions reports keys deleted remotely since the given version
	// plus the version the report was served at.
	Deletions(ctx context.Context, library models.LibraryIdentifier, since int) (models.DeletedKeys, int, error)

	// WriteObjects pushes locally changed items to the server. The
	// ifUnmodifiedSince version gates the write; a mismatch surfaces as
	// *PreconditionError. Returns the new library version.
	WriteObjects(ctx context.Context, library models.LibraryIdentifier, items []models.Item, ifUnmodifiedSince int) (int, error)

	// DownloadAttachment opens a streamed read of the attachment file.
	// The returned length is the declared Content-Length (-1 if unknown).
	DownloadAttachment(ctx context.Context, library models.LibraryIdentifier, key string) (io.ReadCloser, int64, error)

	// AuthorizeUpload asks the server for upload credentials for a file.
	// If the server already has an identical file it returns
	// ErrUploadExists and the attachment can be marked synced directly.
	AuthorizeUpload(ctx context.Context, library models.LibraryIdentifier, att models.Attachment, size int64) (UploadAuthorization, error)

	// UploadMultipart streams the file to the storage endpoint named in
	// the authorization.
	UploadMultipart(ctx context.Context, auth UploadAuthorization, file io.Reader) error

	// RegisterUpload finalizes an upload and returns the authoritative
	// new item version.
	RegisterUpload(ctx context.Context, library models.LibraryIdentifier, key string, auth UploadAuthorization) (int, error)
}

// UploadAuthorization is the server's answer to AuthorizeUpload: where
// to send the bytes and the opaque key used to register the result.
type UploadAuthorization struct {
	URL       string            `json:"url"`
	Params    map[string]string `json:"params"`
	UploadKey string            `json:"uploadKey"`
}
