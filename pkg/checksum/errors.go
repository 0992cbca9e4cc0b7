package checksum

import "errors"

var (
	ErrFailedToHash   = errors.New("failed to hash stream")
	ErrFailedToRewind = errors.New("failed to rewind stream after hashing")
)
