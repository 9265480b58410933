package downloads

import "errors"

// Errors returned by the job controller and registry.
var (
	ErrInvalidParameters   = errors.New("invalid parameters")
	ErrMetadataUnavailable = errors.New("could not get video info")
	ErrProcessSpawn        = errors.New("failed to start download process")
	ErrNotFound            = errors.New("not found")
	ErrDownloadFailure     = errors.New("download failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrCancelled           = errors.New("download cancelled")
)
