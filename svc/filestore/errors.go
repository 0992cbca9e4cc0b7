package filestore

import "errors"

var (
	// ErrNotFound means the requested logical file or version does not
	// exist. A normal failure, not a suspicious one.
	ErrNotFound = errors.New("file or version not found")

	// ErrUnsafeDeletion means a deletion target failed its key-shape
	// validation, or the operation would remove the last remaining version
	// of a file, or would remove the current latest version during a
	// purge. Always fatal; the operation aborts with no side effects.
	ErrUnsafeDeletion = errors.New("unsafe deletion refused")

	// ErrInternalConsistency means an invariant assumed by an algorithm
	// (version ordering, id monotonicity) was violated. A programming
	// defect signal, never silently recovered.
	ErrInternalConsistency = errors.New("internal consistency violation")

	// ErrInvalidInput covers malformed arguments such as an empty relative
	// path or a non-positive version id.
	ErrInvalidInput = errors.New("invalid input")
)
