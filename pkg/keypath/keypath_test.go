package keypath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocloudhq/fieldstore/pkg/keypath"
)

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	t.Run("joins plain segments", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("projects", "a", "b")
		require.NoError(t, err)
		assert.Equal(t, "projects/a/b", got)
	})

	t.Run("rejects parent traversal", func(t *testing.T) {
		t.Parallel()
		_, err := keypath.SafeJoin("projects", "a", "../../etc/passwd")
		require.ErrorIs(t, err, keypath.ErrPathEscape)
	})

	t.Run("rejects absolute segment escape", func(t *testing.T) {
		t.Parallel()
		_, err := keypath.SafeJoin("projects", "/etc/passwd")
		require.ErrorIs(t, err, keypath.ErrPathEscape)
	})

	t.Run("rejects sibling prefix", func(t *testing.T) {
		t.Parallel()
		// "projectsfoo" shares the string prefix but is a different
		// namespace; the separator check must catch it.
		_, err := keypath.SafeJoin("projects", "../projectsfoo/x")
		require.ErrorIs(t, err, keypath.ErrPathEscape)
	})

	t.Run("normalizes redundant separators and dots", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("projects", "a//b", "./c")
		require.NoError(t, err)
		assert.Equal(t, "projects/a/b/c", got)
	})

	t.Run("keeps trailing separator", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("projects", "a/")
		require.NoError(t, err)
		assert.Equal(t, "projects/a/", got)
	})

	t.Run("no segments yields base prefix", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("projects")
		require.NoError(t, err)
		assert.Equal(t, "projects/", got)
	})

	t.Run("empty base is the namespace root", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("", "abc", "files", "data.gpkg")
		require.NoError(t, err)
		assert.Equal(t, "abc/files/data.gpkg", got)

		_, err = keypath.SafeJoin("", "..")
		require.ErrorIs(t, err, keypath.ErrPathEscape)
	})

	t.Run("internal dotdot that stays inside is allowed", func(t *testing.T) {
		t.Parallel()
		got, err := keypath.SafeJoin("projects", "a/../b")
		require.NoError(t, err)
		assert.Equal(t, "projects/b", got)
	})
}

func TestKeyShapes(t *testing.T) {
	t.Parallel()

	const id = "12345678-1234-abcd-ef00-1234567890ab"

	t.Run("project prefix", func(t *testing.T) {
		t.Parallel()
		assert.True(t, keypath.IsProjectPrefix(id+"/"))
		assert.False(t, keypath.IsProjectPrefix(id))
		assert.False(t, keypath.IsProjectPrefix(""))
		assert.False(t, keypath.IsProjectPrefix("/"))
		assert.False(t, keypath.IsProjectPrefix("not-a-uuid/"))
		assert.False(t, keypath.IsProjectPrefix(id+"/files/"))
	})

	t.Run("project object key", func(t *testing.T) {
		t.Parallel()
		assert.True(t, keypath.IsProjectObjectKey(id+"/files/report.qgs"))
		assert.True(t, keypath.IsProjectObjectKey(id+"/meta/thumbnail.png"))
		assert.False(t, keypath.IsProjectObjectKey(id+"/"))
		assert.False(t, keypath.IsProjectObjectKey("files/report.qgs"))
	})

	t.Run("project file key", func(t *testing.T) {
		t.Parallel()
		assert.True(t, keypath.IsProjectFileKey(id+"/files/dir/report.qgs"))
		assert.False(t, keypath.IsProjectFileKey(id+"/packages/xyz/report.qgs"))
		assert.False(t, keypath.IsProjectFileKey(id+"/files/"))
	})

	t.Run("package prefix", func(t *testing.T) {
		t.Parallel()
		assert.True(t, keypath.IsPackagePrefix(id+"/packages/pkg-1/"))
		assert.False(t, keypath.IsPackagePrefix(id+"/packages/"))
		assert.False(t, keypath.IsPackagePrefix(id+"/packages/pkg-1"))
		assert.False(t, keypath.IsPackagePrefix(id+"/packages/../x/"))
	})
}
