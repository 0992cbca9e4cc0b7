package filestore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/geocloudhq/fieldstore/pkg/blob"
	"github.com/geocloudhq/fieldstore/pkg/keypath"
)

// ListFiles returns the project's logical files with their latest version
// resolved (including digests), sorted by name ascending. dirFilter narrows
// the listing to a sub-directory of the files namespace; empty lists
// everything.
//
// Each discovered file costs one content read to hash its latest version.
// Callers needing only counts should use CountFiles.
func (s *Service) ListFiles(ctx context.Context, projectID uuid.UUID, dirFilter string) ([]File, error) {
	return s.listFiles(ctx, projectID, dirFilter, false)
}

// ListFilesWithVersions returns the project's logical files with every
// version resolved and hashed, sorted by name ascending. This reads every
// stored version back once; for large projects it is by far the most
// expensive listing variant.
func (s *Service) ListFilesWithVersions(ctx context.Context, projectID uuid.UUID, dirFilter string) ([]File, error) {
	return s.listFiles(ctx, projectID, dirFilter, true)
}

// CountFiles returns how many logical files exist under the project's
// files namespace. Only directory enumeration, no hashing or stats.
func (s *Service) CountFiles(ctx context.Context, projectID uuid.UUID) (int, error) {
	groups, err := s.collectContainers(ctx, filesPrefix(projectID.String()), filesPrefix(projectID.String()))
	if err != nil {
		return 0, err
	}
	return len(groups), nil
}

// StoredPackageIDs returns the ids of all stored packages of the project,
// sorted ascending. A package id is the first path component below the
// packages namespace.
func (s *Service) StoredPackageIDs(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	prefix := projectID.String() + "/packages/"
	infos, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, prefix)
		packageID, _, found := strings.Cut(rest, "/")
		if !found || packageID == "" {
			continue
		}
		seen[packageID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) listFiles(ctx context.Context, projectID uuid.UUID, dirFilter string, withAllVersions bool) ([]File, error) {
	root := filesPrefix(projectID.String())

	listPrefix := root
	if dirFilter != "" {
		joined, err := keypath.SafeJoin(projectID.String()+"/files", dirFilter)
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(joined, "/") {
			joined += "/"
		}
		listPrefix = joined
	}

	groups, err := s.collectContainers(ctx, listPrefix, root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		versions, err := s.versionsFromInfos(groups[name], name)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			continue
		}

		file := File{
			Key:    root + name,
			Name:   name,
			Latest: versions[len(versions)-1],
		}

		if withAllVersions {
			for i := range versions {
				if err := s.fillDigests(ctx, &versions[i]); err != nil {
					return nil, err
				}
			}
			file.Latest = versions[len(versions)-1]
			file.Versions = versions
		} else {
			if err := s.fillDigests(ctx, &file.Latest); err != nil {
				return nil, err
			}
		}

		files = append(files, file)
	}

	return files, nil
}

// collectContainers enumerates the namespace under listPrefix and groups
// version blobs by their logical file. A path segment carrying the
// container marker suffix is a leaf: everything below it belongs to that
// logical file, regardless of nesting.
func (s *Service) collectContainers(ctx context.Context, listPrefix, stripPrefix string) (map[string][]blob.Info, error) {
	infos, err := s.store.List(ctx, listPrefix)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]blob.Info)
	for _, info := range infos {
		if !strings.HasPrefix(info.Key, stripPrefix) {
			continue
		}
		name, ok := logicalName(strings.TrimPrefix(info.Key, stripPrefix))
		if !ok {
			continue // not inside a version container
		}
		groups[name] = append(groups[name], info)
	}
	return groups, nil
}

// fileNames returns the logical file names of the project, sorted.
func (s *Service) fileNames(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	groups, err := s.collectContainers(ctx, filesPrefix(projectID.String()), filesPrefix(projectID.String()))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// logicalName maps a container-relative blob path to its logical file
// name: "dir/a.qgs.d/3_a.qgs" -> "dir/a.qgs". The first marker segment
// wins; nested markers below it are file content, not containers.
func logicalName(rel string) (string, bool) {
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		if i == len(segments)-1 {
			break // the blob itself, not a directory
		}
		if strings.HasSuffix(segment, containerSuffix) && len(segment) > len(containerSuffix) {
			parts := append(append([]string{}, segments[:i]...), strings.TrimSuffix(segment, containerSuffix))
			return strings.Join(parts, "/"), true
		}
	}
	return "", false
}
