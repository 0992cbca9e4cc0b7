package filestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocloudhq/fieldstore/svc/filestore"
	"github.com/geocloudhq/fieldstore/svc/retention"
)

func TestService_PurgeOldVersions(t *testing.T) {
	t.Parallel()
	svc, _, mem, project := newTestService(t)
	ctx := context.Background()

	upload(t, svc, project.ID, "map.qgs", "version one")
	upload(t, svc, project.ID, "map.qgs", "v2")
	upload(t, svc, project.ID, "map.qgs", "v3 latest")
	upload(t, svc, project.ID, "notes.txt", "single version")

	deleted, err := svc.PurgeOldVersions(ctx, project.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted, "only map.qgs exceeds the keep count")

	versions, err := svc.Versions(ctx, project.ID, "map.qgs")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(2), versions[0].VersionID)
	assert.Equal(t, int64(3), versions[1].VersionID)
	assert.True(t, versions[1].IsLatest)

	entries := mem.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, filestore.AuditActionDelete, entries[0].Action)

	got, err := mem.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len("v3 latest")+len("single version")), got.StorageBytes)
}

func TestService_PurgeOldVersions_RefusesEmptyingFiles(t *testing.T) {
	t.Parallel()
	svc, _, _, project := newTestService(t)
	ctx := context.Background()

	upload(t, svc, project.ID, "map.qgs", "v1")

	_, err := svc.PurgeOldVersions(ctx, project.ID, 0)
	assert.ErrorIs(t, err, filestore.ErrUnsafeDeletion)

	_, err = svc.PurgeOldVersions(ctx, project.ID, -3)
	assert.ErrorIs(t, err, filestore.ErrUnsafeDeletion)
}

func TestService_PurgeOldVersions_NothingToDo(t *testing.T) {
	t.Parallel()
	svc, _, mem, project := newTestService(t)
	ctx := context.Background()

	upload(t, svc, project.ID, "map.qgs", "v1")
	upload(t, svc, project.ID, "map.qgs", "v2")

	deleted, err := svc.PurgeOldVersions(ctx, project.ID, 5)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	versions, err := svc.Versions(ctx, project.ID, "map.qgs")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
	assert.Empty(t, mem.AuditEntries())
}

func TestService_PurgeToPlan(t *testing.T) {
	t.Parallel()
	svc, _, _, project := newTestService(t)
	ctx := context.Background()

	for _, content := range []string{"v1", "v2", "v3", "v4", "v5"} {
		upload(t, svc, project.ID, "map.qgs", content)
	}

	plans := retention.NewInMemSource(retention.CommunityPlan)

	deleted, err := svc.PurgeToPlan(ctx, project.ID, plans)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted, "community plan keeps three versions")

	versions, err := svc.Versions(ctx, project.ID, "map.qgs")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, int64(3), versions[0].VersionID)
	assert.Equal(t, int64(5), versions[2].VersionID)

	_, err = svc.PurgeToPlan(ctx, project.ID, nil)
	assert.ErrorIs(t, err, filestore.ErrInvalidInput)
}
