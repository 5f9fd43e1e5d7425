package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("should report absent on first run", func(t *testing.T) {
		// given
		store := NewFileStore(filepath.Join(t.TempDir(), "reminder", "refresh_token"))

		// when
		secret, ok := store.Load(ctx)

		// then
		assert.False(t, ok)
		assert.Empty(t, secret)
	})

	t.Run("should save and load with restricted permissions", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "reminder", "refresh_token")
		store := NewFileStore(path)

		// when
		err := store.Save(ctx, "1//refresh-a")

		// then
		require.NoError(t, err)
		secret, ok := store.Load(ctx)
		assert.True(t, ok)
		assert.Equal(t, "1//refresh-a", secret)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("should overwrite previous secret", func(t *testing.T) {
		// given
		store := NewFileStore(filepath.Join(t.TempDir(), "refresh_token"))
		require.NoError(t, store.Save(ctx, "first"))

		// when
		err := store.Save(ctx, "second")

		// then
		require.NoError(t, err)
		secret, ok := store.Load(ctx)
		assert.True(t, ok)
		assert.Equal(t, "second", secret)
		entries, err := os.ReadDir(filepath.Dir(store.Path()))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("should surface save failure", func(t *testing.T) {
		// given
		dir := t.TempDir()
		blocker := filepath.Join(dir, "not-a-dir")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
		store := NewFileStore(filepath.Join(blocker, "refresh_token"))

		// when
		err := store.Save(ctx, "secret")

		// then
		assert.Error(t, err)
	})

	t.Run("should default to the XDG data directory", func(t *testing.T) {
		// when
		store := NewFileStore("")

		// then
		assert.True(t, filepath.IsAbs(store.Path()))
		assert.Contains(t, store.Path(), filepath.Join("klokku-reminder", "refresh_token"))
	})
}
