package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/geocloudhq/fieldstore/pkg/keypath"
)

// DeleteResult reports what a version deletion removed and what became of
// the logical file's latest version. LatestChanged is the signal external
// systems (e.g. repackaging) watch for.
type DeleteResult struct {
	Deleted       []FileVersion
	NewLatest     *FileVersion
	LatestChanged bool
}

// DeleteVersion permanently deletes one version of a project file. With
// includeOlder, every version strictly older than the target is deleted
// too; when the target is the current latest, includeOlder is ignored.
//
// Deleting the only remaining version is refused: a logical file must
// never be reduced to zero versions through this path. Use DeleteFile.
//
// Audit entries and the recomputed stored-bytes counter are committed in
// one transaction; on any failure no bookkeeping is persisted.
func (s *Service) DeleteVersion(ctx context.Context, projectID uuid.UUID, relPath string, versionID int64, includeOlder bool) (*DeleteResult, error) {
	if versionID < 1 {
		return nil, fmt.Errorf("%w: version id %d", ErrInvalidInput, versionID)
	}

	key, name, err := s.fileKey(projectID, relPath)
	if err != nil {
		return nil, err
	}

	versions, err := s.loadVersions(ctx, key, name, true)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	latest := versions[len(versions)-1]
	if latest.VersionID == versionID {
		includeOlder = false
		if len(versions) == 1 {
			s.log.Error("refusing to delete the only remaining version",
				slog.String("project_id", projectID.String()),
				slog.String("file", name),
				slog.Int64("version_id", versionID),
			)
			return nil, fmt.Errorf("%w: version %d is the only version of %q",
				ErrUnsafeDeletion, versionID, name)
		}
	}

	toDelete, err := collectDeletable(versions, versionID, includeOlder)
	if err != nil {
		return nil, err
	}
	if len(toDelete) == 0 {
		return nil, fmt.Errorf("%w: version %d of %s", ErrNotFound, versionID, relPath)
	}

	for _, v := range toDelete {
		if err := s.guardProjectObjectKey(projectID, v.Key); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, v := range toDelete {
			if err := tx.Audit().Record(ctx, deletionAuditEntry(projectID, name+" "+v.Display(), v.MD5)); err != nil {
				return err
			}
			if err := s.store.Delete(ctx, v.Key); err != nil {
				return err
			}
		}
		return s.saveRecomputedStorageBytes(ctx, tx, projectID)
	})
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{Deleted: toDelete}
	remaining, err := s.loadVersions(ctx, key, name, false)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		newLatest := remaining[len(remaining)-1]
		result.NewLatest = &newLatest
		result.LatestChanged = newLatest.VersionID != latest.VersionID
	}

	s.log.Info("deleted file versions",
		slog.String("project_id", projectID.String()),
		slog.String("file", name),
		slog.Int("count", len(toDelete)),
		slog.Bool("latest_changed", result.LatestChanged),
	)

	return result, nil
}

// collectDeletable walks versions newest-first, collecting the target and,
// with includeOlder, everything strictly older. Each collected version
// must be older than the previously collected one; a violation means
// version ordering broke and the whole operation aborts.
func collectDeletable(versions []FileVersion, versionID int64, includeOlder bool) ([]FileVersion, error) {
	var collected []FileVersion
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]

		if v.VersionID == versionID {
			collected = append(collected, v)
			if includeOlder {
				continue
			}
			break
		}

		if len(collected) > 0 {
			if !includeOlder {
				return nil, fmt.Errorf("%w: collected past the target without include-older",
					ErrInternalConsistency)
			}
			prev := collected[len(collected)-1]
			if !prev.LastModified.After(v.LastModified) {
				return nil, fmt.Errorf("%w: version %d (%s) is not older than version %d (%s)",
					ErrInternalConsistency,
					v.VersionID, v.LastModified, prev.VersionID, prev.LastModified)
			}
			collected = append(collected, v)
		}
	}
	return collected, nil
}

// DeleteFile permanently deletes a logical file with all its versions.
// Clearing the project filename (when the QGIS project file itself is
// deleted), the audit entry and the recomputed byte counter share one
// transaction.
func (s *Service) DeleteFile(ctx context.Context, projectID uuid.UUID, relPath string) error {
	key, name, err := s.fileKey(projectID, relPath)
	if err != nil {
		return err
	}

	versions, err := s.loadVersions(ctx, key, name, false)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}

	latest := versions[len(versions)-1]
	if err := s.fillDigests(ctx, &latest); err != nil {
		return err
	}

	if !keypath.IsProjectFileKey(key) {
		s.log.Error("suspicious file deletion key",
			slog.String("project_id", projectID.String()),
			slog.String("key", key),
		)
		return fmt.Errorf("%w: key %q does not match the project file shape", ErrUnsafeDeletion, key)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if IsProjectFile(name) {
			if err := tx.Projects().SaveFilename(ctx, projectID, ""); err != nil {
				return err
			}
		}

		if err := tx.Audit().Record(ctx, deletionAuditEntry(projectID, name+" ALL", latest.MD5)); err != nil {
			return err
		}

		if _, err := s.store.DeletePrefix(ctx, containerPrefix(key)); err != nil {
			return err
		}

		return s.saveRecomputedStorageBytes(ctx, tx, projectID)
	})
	if err != nil {
		return err
	}

	s.log.Info("deleted file with all versions",
		slog.String("project_id", projectID.String()),
		slog.String("file", name),
		slog.Int("versions", len(versions)),
	)
	return nil
}

// DeleteProjectFiles permanently erases everything stored under the
// project's key space. Called when the project itself is being deleted;
// the number of removed objects is returned.
func (s *Service) DeleteProjectFiles(ctx context.Context, projectID uuid.UUID) (int, error) {
	prefix := projectID.String() + "/"
	if !keypath.IsProjectPrefix(prefix) {
		s.log.Error("suspicious project deletion prefix", slog.String("prefix", prefix))
		return 0, fmt.Errorf("%w: prefix %q does not match the project shape", ErrUnsafeDeletion, prefix)
	}

	deleted := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		count, err := s.store.DeletePrefix(ctx, prefix)
		if err != nil {
			return err
		}
		deleted = count

		objects := strconv.Itoa(count) + " objects"
		if err := tx.Audit().Record(ctx, deletionAuditEntry(projectID, "ALL project files", objects)); err != nil {
			return err
		}
		if err := tx.Projects().SaveFilename(ctx, projectID, ""); err != nil {
			return err
		}
		return tx.Projects().SaveStorageBytes(ctx, projectID, 0)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("deleted all project files",
		slog.String("project_id", projectID.String()),
		slog.Int("objects", deleted),
	)
	return deleted, nil
}

// DeleteStoredPackage permanently removes one stored package. Packages are
// build artifacts outside the files namespace; they do not count toward
// the stored-bytes total, so no bookkeeping is touched.
func (s *Service) DeleteStoredPackage(ctx context.Context, projectID uuid.UUID, packageID string) error {
	prefix := fmt.Sprintf("%s/packages/%s/", projectID.String(), packageID)
	if !keypath.IsPackagePrefix(prefix) {
		s.log.Error("suspicious package deletion prefix", slog.String("prefix", prefix))
		return fmt.Errorf("%w: prefix %q does not match the package shape", ErrUnsafeDeletion, prefix)
	}

	deleted, err := s.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return err
	}

	s.log.Info("deleted stored package",
		slog.String("project_id", projectID.String()),
		slog.String("package_id", packageID),
		slog.Int("objects", deleted),
	)
	return nil
}

// guardProjectObjectKey re-verifies a deletion target's key shape. This is
// the last line of defense against a future code change passing a
// malformed key into an irreversible delete.
func (s *Service) guardProjectObjectKey(projectID uuid.UUID, key string) error {
	if keypath.IsProjectObjectKey(key) {
		return nil
	}
	s.log.Error("suspicious version deletion key",
		slog.String("project_id", projectID.String()),
		slog.String("key", key),
	)
	return fmt.Errorf("%w: key %q does not match the project object shape", ErrUnsafeDeletion, key)
}

// saveRecomputedStorageBytes refreshes the project's stored-bytes counter
// from the post-deletion storage state, inside the caller's transaction.
func (s *Service) saveRecomputedStorageBytes(ctx context.Context, tx Tx, projectID uuid.UUID) error {
	total, err := s.recomputeStorageBytes(ctx, projectID.String())
	if err != nil {
		return err
	}
	return tx.Projects().SaveStorageBytes(ctx, projectID, total)
}

func deletionAuditEntry(projectID uuid.UUID, field, oldValue string) AuditEntry {
	old := oldValue
	return AuditEntry{
		ID:        uuid.New(),
		ProjectID: projectID,
		Action:    AuditActionDelete,
		Changes:   map[string]FieldChange{field: {Old: &old, New: nil}},
		CreatedAt: time.Now().UTC(),
	}
}
