// Package blob provides the backing byte-store for versioned project
// files: an abstract key/value namespace with prefix enumeration, backed
// either by a local directory tree or by S3-compatible object storage.
//
// The backend is chosen once, at construction:
//
//	store, err := blob.New(ctx, blob.Config{
//	    Backend:  blob.BackendLocal,
//	    LocalDir: "/var/lib/fieldstore/projects",
//	})
//
// Keys always use "/" separators. Both backends guarantee atomicity only
// at single-key granularity; coordination across keys is the caller's
// concern.
//
// Errors are classified into package sentinels (ErrNotFound,
// ErrAccessDenied, ...) so callers branch with errors.Is without knowing
// which backend is in use.
package blob
