package filestore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocloudhq/fieldstore/svc/filestore"
)

func TestMemStore_GetUnknownProject(t *testing.T) {
	t.Parallel()
	mem := filestore.NewMemStore()

	_, err := mem.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestMemStore_WithinTx_CommitsAsOneUnit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	project := filestore.Project{ID: uuid.New()}
	mem := filestore.NewMemStore(project)

	err := mem.WithinTx(ctx, func(ctx context.Context, tx filestore.Tx) error {
		if err := tx.Projects().SaveStorageBytes(ctx, project.ID, 42); err != nil {
			return err
		}
		if err := tx.Projects().SaveFilename(ctx, project.ID, "map.qgs"); err != nil {
			return err
		}

		// The transaction sees its own writes; the store does not yet.
		staged, err := tx.Projects().Get(ctx, project.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(42), staged.StorageBytes)

		outside, err := mem.Get(ctx, project.ID)
		require.NoError(t, err)
		assert.Zero(t, outside.StorageBytes)

		return tx.Audit().Record(ctx, filestore.AuditEntry{
			ID:        uuid.New(),
			ProjectID: project.ID,
			Action:    filestore.AuditActionDelete,
		})
	})
	require.NoError(t, err)

	got, err := mem.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.StorageBytes)
	assert.Equal(t, "map.qgs", got.Filename)
	assert.Len(t, mem.AuditEntries(), 1)
}

func TestMemStore_WithinTx_DiscardsOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	project := filestore.Project{ID: uuid.New(), StorageBytes: 7}
	mem := filestore.NewMemStore(project)

	boom := errors.New("boom")
	err := mem.WithinTx(ctx, func(ctx context.Context, tx filestore.Tx) error {
		if err := tx.Projects().SaveStorageBytes(ctx, project.ID, 99); err != nil {
			return err
		}
		if err := tx.Audit().Record(ctx, filestore.AuditEntry{ID: uuid.New()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := mem.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.StorageBytes)
	assert.Empty(t, mem.AuditEntries())
}
