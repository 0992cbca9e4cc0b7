package blob

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid storage configuration")
	ErrInvalidKey    = errors.New("invalid object key")
	ErrNotFound      = errors.New("object not found")

	ErrFailedToWrite     = errors.New("failed to write object")
	ErrFailedToRead      = errors.New("failed to read object")
	ErrFailedToDelete    = errors.New("failed to delete object")
	ErrFailedToList      = errors.New("failed to list objects")
	ErrFailedToStat      = errors.New("failed to stat object")
	ErrFailedToCreateDir = errors.New("failed to create directory")

	// S3-specific classification.
	ErrBucketNotFound = errors.New("bucket not found")
	ErrAccessDenied   = errors.New("access denied")
)
