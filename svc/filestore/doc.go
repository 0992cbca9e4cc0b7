// Package filestore implements versioned storage for project files.
//
// Every project owns a flat key space "<project-uuid>/files/..." on a
// blob.Storage backend. A logical file at key K keeps its versions as
// sibling blobs under the container "K.d/", named "<version-id>_<basename>".
// Version ids start at 1 and grow monotonically; the highest id is the
// latest version. Because all state lives in the blob listing, the store
// needs no database of its own - the repository ports only persist
// derived bookkeeping (stored-bytes counter, project filename) and the
// audit trail of permanent deletions.
//
// Destructive operations are guarded twice: structurally (a file can
// never lose its last version except through DeleteFile, a purge can
// never select the latest version) and by key shape (every deleted key
// must match the expected project/object pattern). Audit entries and
// counter updates commit in one transaction via TxRunner.
package filestore
