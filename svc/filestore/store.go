package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/geocloudhq/fieldstore/pkg/blob"
	"github.com/geocloudhq/fieldstore/pkg/checksum"
)

// containerSuffix marks the directory holding a logical file's versions.
// The key "<pid>/files/a/b.qgs" stores its versions as
// "<pid>/files/a/b.qgs.d/<version-id>_b.qgs".
const containerSuffix = ".d"

func containerPrefix(key string) string {
	return key + containerSuffix + "/"
}

// versionBlobKey builds the physical key for a new version.
func versionBlobKey(key string, versionID int64, basename string) string {
	return fmt.Sprintf("%s%d_%s", containerPrefix(key), versionID, basename)
}

// parseVersionBlob extracts the version id from a physical blob name,
// "<version-id>_<basename>".
func parseVersionBlob(blobKey string) (int64, bool) {
	base := blobKey
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	idStr, _, found := strings.Cut(base, "_")
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// loadVersions resolves all versions of the logical file at key, ascending
// by version id, with IsLatest set on the last. Returns nil when the file
// has no versions, which is indistinguishable from it never existing.
//
// With digests enabled every version's content is read back and hashed;
// that is the dominant cost of listing large projects, so metadata-only
// callers pass false.
func (s *Service) loadVersions(ctx context.Context, key, name string, withDigests bool) ([]FileVersion, error) {
	infos, err := s.store.List(ctx, containerPrefix(key))
	if err != nil {
		return nil, err
	}

	versions, err := s.versionsFromInfos(infos, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, nil
	}

	if withDigests {
		for i := range versions {
			if err := s.fillDigests(ctx, &versions[i]); err != nil {
				return nil, err
			}
		}
	}

	return versions, nil
}

// versionsFromInfos turns one container's blob listing into versions
// ascending by id, with IsLatest set on the last. Blobs that do not parse
// as versions are skipped with a warning; duplicate ids violate the
// monotonicity invariant and are fatal.
func (s *Service) versionsFromInfos(infos []blob.Info, name string) ([]FileVersion, error) {
	versions := make([]FileVersion, 0, len(infos))
	for _, info := range infos {
		id, ok := parseVersionBlob(info.Key)
		if !ok {
			s.log.Warn("skipping unparseable version blob", slog.String("key", info.Key))
			continue
		}
		versions = append(versions, FileVersion{
			VersionID:    id,
			Key:          info.Key,
			Name:         name,
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	if len(versions) == 0 {
		return nil, nil
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionID < versions[j].VersionID })

	for i := 1; i < len(versions); i++ {
		if versions[i].VersionID == versions[i-1].VersionID {
			return nil, fmt.Errorf("%w: duplicate version id %d for %q",
				ErrInternalConsistency, versions[i].VersionID, name)
		}
	}
	versions[len(versions)-1].IsLatest = true

	return versions, nil
}

// fillDigests reads a version's content back and computes its digests.
func (s *Service) fillDigests(ctx context.Context, v *FileVersion) error {
	rc, err := s.store.Read(ctx, v.Key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	digests, err := checksum.SumReader(rc)
	if err != nil {
		return err
	}
	v.MD5 = digests.MD5
	v.SHA256 = digests.SHA256
	return nil
}

// recomputeStorageBytes sums the sizes of the latest versions of all files
// in the project, from the current storage state. Deletion and purge paths
// always recompute instead of accumulating deltas, so partial failures can
// never make the counter drift.
func (s *Service) recomputeStorageBytes(ctx context.Context, projectID string) (int64, error) {
	groups, err := s.collectContainers(ctx, filesPrefix(projectID), filesPrefix(projectID))
	if err != nil {
		return 0, err
	}

	var total int64
	for name, infos := range groups {
		versions, err := s.versionsFromInfos(infos, name)
		if err != nil {
			return 0, err
		}
		if len(versions) == 0 {
			continue
		}
		total += versions[len(versions)-1].Size
	}
	return total, nil
}

func filesPrefix(projectID string) string {
	return projectID + "/files/"
}
