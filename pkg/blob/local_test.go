package blob_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocloudhq/fieldstore/pkg/blob"
)

func newLocal(t *testing.T) (*blob.Local, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := blob.NewLocal(dir)
	require.NoError(t, err)
	return store, dir
}

func TestLocal_WriteRead(t *testing.T) {
	t.Parallel()
	store, dir := newLocal(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		content := []byte("project bytes")
		n, err := store.Write(ctx, "proj/files/a.qgs.d/1_a.qgs", bytes.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), n)

		rc, err := store.Read(ctx, "proj/files/a.qgs.d/1_a.qgs")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("creates intermediate directories", func(t *testing.T) {
		_, err := store.Write(ctx, "p/deep/nested/dir/file.bin", bytes.NewReader([]byte("x")))
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(dir, "p", "deep", "nested", "dir", "file.bin"))
		require.NoError(t, err)
	})

	t.Run("read missing key", func(t *testing.T) {
		_, err := store.Read(ctx, "nope/missing.bin")
		require.ErrorIs(t, err, blob.ErrNotFound)
	})

	t.Run("rejects traversal keys", func(t *testing.T) {
		_, err := store.Write(ctx, "../outside.bin", bytes.NewReader([]byte("x")))
		require.ErrorIs(t, err, blob.ErrInvalidKey)
	})
}

func TestLocal_Delete(t *testing.T) {
	t.Parallel()
	store, dir := newLocal(t)
	ctx := context.Background()

	t.Run("removes object and empty parents", func(t *testing.T) {
		_, err := store.Write(ctx, "p/files/a.txt.d/1_a.txt", bytes.NewReader([]byte("v1")))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "p/files/a.txt.d/1_a.txt"))

		_, err = store.Stat(ctx, "p/files/a.txt.d/1_a.txt")
		require.ErrorIs(t, err, blob.ErrNotFound)

		// The emptied container directory is gone too.
		_, err = os.Stat(filepath.Join(dir, "p", "files", "a.txt.d"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("keeps parents holding other objects", func(t *testing.T) {
		_, err := store.Write(ctx, "q/files/b.txt.d/1_b.txt", bytes.NewReader([]byte("v1")))
		require.NoError(t, err)
		_, err = store.Write(ctx, "q/files/b.txt.d/2_b.txt", bytes.NewReader([]byte("v2")))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "q/files/b.txt.d/1_b.txt"))

		_, err = store.Stat(ctx, "q/files/b.txt.d/2_b.txt")
		require.NoError(t, err)
	})

	t.Run("missing key", func(t *testing.T) {
		err := store.Delete(ctx, "missing/file.bin")
		require.ErrorIs(t, err, blob.ErrNotFound)
	})
}

func TestLocal_DeletePrefix(t *testing.T) {
	t.Parallel()
	store, _ := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{
		"p1/files/a.d/1_a",
		"p1/files/a.d/2_a",
		"p1/packages/pkg/data.zip",
		"p2/files/b.d/1_b",
	} {
		_, err := store.Write(ctx, key, bytes.NewReader([]byte("content")))
		require.NoError(t, err)
	}

	t.Run("requires separator-terminated prefix", func(t *testing.T) {
		_, err := store.DeletePrefix(ctx, "p1")
		require.ErrorIs(t, err, blob.ErrInvalidKey)
	})

	t.Run("removes everything under prefix only", func(t *testing.T) {
		n, err := store.DeletePrefix(ctx, "p1/")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		infos, err := store.List(ctx, "p1/")
		require.NoError(t, err)
		assert.Empty(t, infos)

		infos, err = store.List(ctx, "p2/")
		require.NoError(t, err)
		assert.Len(t, infos, 1)
	})

	t.Run("empty prefix is a no-op", func(t *testing.T) {
		n, err := store.DeletePrefix(ctx, "gone/")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestLocal_List(t *testing.T) {
	t.Parallel()
	store, _ := newLocal(t)
	ctx := context.Background()

	keys := []string{
		"p/files/z.d/1_z",
		"p/files/a.d/1_a",
		"p/files/a.d/2_a",
	}
	for _, key := range keys {
		_, err := store.Write(ctx, key, bytes.NewReader([]byte("abc")))
		require.NoError(t, err)
	}

	infos, err := store.List(ctx, "p/files/")
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// Sorted by key, sizes and mtimes populated.
	assert.Equal(t, "p/files/a.d/1_a", infos[0].Key)
	assert.Equal(t, "p/files/a.d/2_a", infos[1].Key)
	assert.Equal(t, "p/files/z.d/1_z", infos[2].Key)
	for _, info := range infos {
		assert.Equal(t, int64(3), info.Size)
		assert.False(t, info.LastModified.IsZero())
	}

	t.Run("unknown prefix lists nothing", func(t *testing.T) {
		infos, err := store.List(ctx, "unknown/")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}
