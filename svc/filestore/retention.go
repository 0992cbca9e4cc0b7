package filestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/geocloudhq/fieldstore/svc/retention"
)

// PurgeOldVersions trims every logical file of the project down to its
// keepCount most recent versions, ranked by last-modified time. Version
// content is erased permanently.
//
// keepCount below one is refused outright: a purge must never be able to
// empty a file. If ranking would ever select the current latest version
// for deletion the whole purge aborts with ErrUnsafeDeletion before
// anything is touched.
//
// Returns the number of versions deleted across all files.
func (s *Service) PurgeOldVersions(ctx context.Context, projectID uuid.UUID, keepCount int) (int, error) {
	if keepCount < 1 {
		return 0, fmt.Errorf("%w: purge must keep at least one version, got %d",
			ErrUnsafeDeletion, keepCount)
	}

	root := filesPrefix(projectID.String())
	groups, err := s.collectContainers(ctx, root, root)
	if err != nil {
		return 0, err
	}

	var candidates []FileVersion
	for name, infos := range groups {
		versions, err := s.versionsFromInfos(infos, name)
		if err != nil {
			return 0, err
		}

		for _, v := range purgeCandidates(versions, keepCount) {
			if v.IsLatest {
				s.log.Error("purge ranking selected the latest version",
					slog.String("project_id", projectID.String()),
					slog.String("file", name),
					slog.Int64("version_id", v.VersionID),
				)
				return 0, fmt.Errorf("%w: purge would delete the latest version of %q",
					ErrUnsafeDeletion, name)
			}
			if err := s.guardProjectObjectKey(projectID, v.Key); err != nil {
				return 0, err
			}
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	for i := range candidates {
		if err := s.fillDigests(ctx, &candidates[i]); err != nil {
			return 0, err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, v := range candidates {
			if err := tx.Audit().Record(ctx, deletionAuditEntry(projectID, v.Name+" "+v.Display(), v.MD5)); err != nil {
				return err
			}
			if err := s.store.Delete(ctx, v.Key); err != nil {
				return err
			}
		}
		return s.saveRecomputedStorageBytes(ctx, tx, projectID)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("purged old file versions",
		slog.String("project_id", projectID.String()),
		slog.Int("keep_count", keepCount),
		slog.Int("deleted", len(candidates)),
	)
	return len(candidates), nil
}

// purgeCandidates ranks versions newest-first by last-modified time and
// returns everything past the first keepCount. Version id breaks ties so
// that same-second uploads still rank deterministically, newest id first.
func purgeCandidates(versions []FileVersion, keepCount int) []FileVersion {
	if len(versions) <= keepCount {
		return nil
	}

	ranked := make([]FileVersion, len(versions))
	copy(ranked, versions)
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].LastModified.Equal(ranked[j].LastModified) {
			return ranked[i].LastModified.After(ranked[j].LastModified)
		}
		return ranked[i].VersionID > ranked[j].VersionID
	})

	return ranked[keepCount:]
}

// PurgeToPlan purges the project according to the retention plan of its
// owning account.
func (s *Service) PurgeToPlan(ctx context.Context, projectID uuid.UUID, plans retention.Source) (int, error) {
	if plans == nil {
		return 0, fmt.Errorf("%w: plan source is required", ErrInvalidInput)
	}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return 0, err
	}

	plan, err := plans.Plan(ctx, project.OwnerID)
	if err != nil {
		return 0, err
	}
	if err := plan.Validate(); err != nil {
		return 0, err
	}

	return s.PurgeOldVersions(ctx, projectID, plan.StorageKeepVersions)
}
