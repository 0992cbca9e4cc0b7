package filestore

import (
	"path"
	"strings"
	"time"
)

// FileVersion is one immutable revision of a logical file's bytes. Versions
// are never edited in place, only created or permanently deleted.
type FileVersion struct {
	// VersionID is a positive integer, strictly increasing within one
	// logical file, assigned at write time and never reused.
	VersionID int64
	// Key is the storage key of the physical blob holding this version.
	Key string
	// Name is the file path relative to the project's files namespace.
	Name string
	// Size in bytes.
	Size int64
	// LastModified is the blob's modification timestamp.
	LastModified time.Time
	// MD5 digest of the content, hex encoded. Empty when the caller asked
	// for metadata only.
	MD5 string
	// SHA256 digest of the content, hex encoded. Optional, as MD5.
	SHA256 string
	// IsLatest is true only for the version with the maximum VersionID in
	// the current remaining set. Derived at query time, never stored.
	IsLatest bool
}

// Display returns the human-facing version label used in audit entries,
// derived from the modification timestamp.
func (v FileVersion) Display() string {
	return v.LastModified.UTC().Format("v20060102150405")
}

// File is a logical file together with its resolved versions. A logical
// file exists only as long as at least one version does; it has no record
// of its own.
type File struct {
	// Key is the logical storage key, "<project-id>/files/<relative-path>".
	Key string
	// Name is the path relative to the project's files namespace.
	Name string
	// Latest is the version with the highest VersionID.
	Latest FileVersion
	// Versions holds all versions ascending by VersionID; Latest is the
	// last element.
	Versions []FileVersion
}

// TotalSize is the byte count of all versions, not just the latest.
func (f File) TotalSize() int64 {
	var total int64
	for _, v := range f.Versions {
		total += v.Size
	}
	return total
}

// IsProjectFile reports whether the filename looks like a QGIS project
// file, judged by extension.
func IsProjectFile(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".qgs", ".qgz":
		return true
	}
	return false
}
