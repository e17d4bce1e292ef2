package models

// TransferKind discriminates TransferState variants.
type TransferKind int

const (
	TransferNone TransferKind = iota
	TransferDownloading
	TransferUploading
	TransferReady
	TransferFailed
	TransferCancelled
)

// TransferState is the tagged state of an attachment file transfer.
// Progress is meaningful only for the downloading and uploading kinds;
// Err only for failed.
type TransferState struct {
	Kind TransferKind

	// Progress is an integer percentage in [0, 100].
	Progress int

	Err error
}

func TransferStateNone() TransferState { return TransferState{Kind: TransferNone} }

func Downloading(progress int) TransferState {
	return TransferState{Kind: TransferDownloading, Progress: progress}
}

func Uploading(progress int) TransferState {
	return TransferState{Kind: TransferUploading, Progress: progress}
}

func Ready() TransferState { return TransferState{Kind: TransferReady, Progress: 100} }

func Failed(err error) TransferState { return TransferState{Kind: TransferFailed, Err: err} }

func Cancelled() TransferState { return TransferState{Kind: TransferCancelled} }

// Terminal reports whether no further state changes are expected for the
// current transfer attempt.
func (s TransferState) Terminal() bool {
	switch s.Kind {
	case TransferReady, TransferFailed, TransferCancelled:
		return true
	default:
		return false
	}
}

// Attachment is the file-bearing view of an item. It pairs the item
// identity with the local content location and the transfer bookkeeping
// needed to download or upload the file.
type Attachment struct {
	Key       string            `json:"key"`
	LibraryID LibraryIdentifier `json:"library_id"`

	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`

	// MD5 is the server-reported content hash, used to decide whether the
	// local copy is current and to authorize uploads.
	MD5 string `json:"md5"`

	// MTime is the file modification time in milliseconds since epoch, as
	// the upload authorization endpoint expects it.
	MTime int64 `json:"mtime"`

	// Path is the absolute local path of the file once downloaded.
	Path string `json:"-"`

	State TransferState `json:"-"`
}
