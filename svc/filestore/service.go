package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/geocloudhq/fieldstore/pkg/blob"
	"github.com/geocloudhq/fieldstore/pkg/checksum"
	"github.com/geocloudhq/fieldstore/pkg/keylock"
	"github.com/geocloudhq/fieldstore/pkg/keypath"
)

// Service is the versioned project-file store. It owns the physical bytes
// under each project's key space; bookkeeping (stored-bytes counter, audit
// log) is persisted through the repository ports.
//
// All operations are synchronous and request-scoped; nothing here schedules
// background work.
type Service struct {
	store    blob.Storage
	projects ProjectRepository
	tx       TxRunner
	locker   keylock.Locker
	log      *slog.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLocker replaces the per-key lock, e.g. with keylock.RedisLock when
// several instances share one storage namespace.
func WithLocker(l keylock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates the service. store, projects and tx are required.
func New(store blob.Storage, projects ProjectRepository, tx TxRunner, opts ...Option) (*Service, error) {
	if store == nil || projects == nil || tx == nil {
		return nil, fmt.Errorf("%w: store, projects and tx are required", ErrInvalidInput)
	}

	s := &Service{
		store:    store,
		projects: projects,
		tx:       tx,
		locker:   keylock.NewMutex(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upload stores content as the next version of the project file at
// relPath and returns the created version.
//
// Version-id allocation and the blob write are serialized per logical file
// key, so concurrent uploads to the same file never produce duplicate ids.
// Uploads to different files proceed independently.
func (s *Service) Upload(ctx context.Context, projectID uuid.UUID, relPath string, content io.ReadSeeker) (FileVersion, error) {
	key, name, err := s.fileKey(projectID, relPath)
	if err != nil {
		return FileVersion{}, err
	}

	digests, err := checksum.Sum(content)
	if err != nil {
		return FileVersion{}, err
	}

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return FileVersion{}, err
	}

	version, err := s.putLocked(ctx, key, name, content)
	unlock()
	if err != nil {
		return FileVersion{}, err
	}
	version.MD5 = digests.MD5
	version.SHA256 = digests.SHA256

	if err := s.updateUploadBookkeeping(ctx, projectID, name); err != nil {
		return FileVersion{}, err
	}

	s.log.Info("stored file version",
		slog.String("project_id", projectID.String()),
		slog.String("file", name),
		slog.Int64("version_id", version.VersionID),
		slog.Int64("size", version.Size),
	)

	return version, nil
}

// putLocked allocates the next version id and writes the blob. Caller
// holds the per-key lock.
func (s *Service) putLocked(ctx context.Context, key, name string, content io.Reader) (FileVersion, error) {
	versions, err := s.loadVersions(ctx, key, name, false)
	if err != nil {
		return FileVersion{}, err
	}

	nextID := int64(1)
	if len(versions) > 0 {
		nextID = versions[len(versions)-1].VersionID + 1
	}

	blobKey := versionBlobKey(key, nextID, path.Base(name))
	size, err := s.store.Write(ctx, blobKey, content)
	if err != nil {
		return FileVersion{}, err
	}

	info, err := s.store.Stat(ctx, blobKey)
	if err != nil {
		return FileVersion{}, err
	}

	return FileVersion{
		VersionID:    nextID,
		Key:          blobKey,
		Name:         name,
		Size:         size,
		LastModified: info.LastModified,
		IsLatest:     true,
	}, nil
}

// updateUploadBookkeeping refreshes the stored-bytes counter and records
// the project filename when a QGIS project file lands.
//
// The recount runs outside the per-key lock. Concurrent uploads to
// different files may commit their snapshots in either order; the last
// committed total stands until the next structural change recounts from
// storage, so the counter is eventually exact, not monotonic.
func (s *Service) updateUploadBookkeeping(ctx context.Context, projectID uuid.UUID, name string) error {
	total, err := s.recomputeStorageBytes(ctx, projectID.String())
	if err != nil {
		return err
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Projects().SaveStorageBytes(ctx, projectID, total); err != nil {
			return err
		}
		if IsProjectFile(name) {
			if err := tx.Projects().SaveFilename(ctx, projectID, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetLatest returns the latest version of the file at relPath, with
// digests, or (nil, nil) when the file has no versions.
func (s *Service) GetLatest(ctx context.Context, projectID uuid.UUID, relPath string) (*FileVersion, error) {
	key, name, err := s.fileKey(projectID, relPath)
	if err != nil {
		return nil, err
	}

	versions, err := s.loadVersions(ctx, key, name, false)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}

	latest := versions[len(versions)-1]
	if err := s.fillDigests(ctx, &latest); err != nil {
		return nil, err
	}
	return &latest, nil
}

// Versions returns all versions of the file ascending by version id, each
// with digests. Reading every version back to hash it is the dominant cost
// for files with long histories; use GetLatest or CountFiles when that is
// all the caller needs.
func (s *Service) Versions(ctx context.Context, projectID uuid.UUID, relPath string) ([]FileVersion, error) {
	key, name, err := s.fileKey(projectID, relPath)
	if err != nil {
		return nil, err
	}
	return s.loadVersions(ctx, key, name, true)
}

// OpenLatest opens the latest version's content for reading. The caller
// closes the stream.
func (s *Service) OpenLatest(ctx context.Context, projectID uuid.UUID, relPath string) (io.ReadCloser, *FileVersion, error) {
	latest, err := s.GetLatest(ctx, projectID, relPath)
	if err != nil {
		return nil, nil, err
	}
	if latest == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	rc, err := s.store.Read(ctx, latest.Key)
	if err != nil {
		return nil, nil, err
	}
	return rc, latest, nil
}

// CheckFile returns the SHA-256 of the latest version of the file, or the
// empty string when the file does not exist.
func (s *Service) CheckFile(ctx context.Context, projectID uuid.UUID, relPath string) (string, error) {
	latest, err := s.GetLatest(ctx, projectID, relPath)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", nil
	}
	return latest.SHA256, nil
}

// ProjectFilename scans the project's files for a QGIS project file and
// returns its relative path, or empty when none exists.
func (s *Service) ProjectFilename(ctx context.Context, projectID uuid.UUID) (string, error) {
	names, err := s.fileNames(ctx, projectID)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if IsProjectFile(name) {
			return name, nil
		}
	}
	return "", nil
}

// fileKey validates relPath against the project's files namespace and
// returns the logical key plus the normalized relative name.
func (s *Service) fileKey(projectID uuid.UUID, relPath string) (key, name string, err error) {
	if relPath == "" || strings.HasSuffix(relPath, "/") {
		return "", "", fmt.Errorf("%w: %q is not a file path", ErrInvalidInput, relPath)
	}

	base := projectID.String() + "/files"
	key, err = keypath.SafeJoin(base, relPath)
	if err != nil {
		return "", "", err
	}

	name = strings.TrimPrefix(key, base+"/")

	// The container marker is reserved for the physical version layout. A
	// user segment carrying it would collide with a sibling file's container
	// and corrupt version grouping, so it is refused before anything is
	// written.
	for _, segment := range strings.Split(name, "/") {
		if strings.HasSuffix(segment, containerSuffix) {
			return "", "", fmt.Errorf("%w: path segment %q ends with the reserved marker %q",
				ErrInvalidInput, segment, containerSuffix)
		}
	}

	return key, name, nil
}
