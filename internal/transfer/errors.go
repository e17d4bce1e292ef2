package transfer

import "errors"

var (
	// ErrDownloadNotPDF is reported when a file declared as a PDF does not
	// start with the PDF signature. The partial file is deleted.
	ErrDownloadNotPDF = errors.New("downloaded file is not a valid PDF")

	// ErrNoLocalFile is reported when an upload is requested for an
	// attachment whose file is missing on disk.
	ErrNoLocalFile = errors.New("attachment has no local file")

	// ErrShuttingDown is returned by enqueue calls while the transfer
	// scope is being torn down.
	ErrShuttingDown = errors.New("transfer manager is shutting down")
)
