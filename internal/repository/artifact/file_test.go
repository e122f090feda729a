package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(0)

	data, err := repo.Load(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, data)
}

// TestFileRepository_SaveLoad writes into a new directory and replaces existing content.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dist", "update.xml")
	repo := NewFileRepository(0)

	require.NoError(t, repo.Save(context.Background(), path, []byte("first")))
	require.NoError(t, repo.Save(context.Background(), path, []byte("second")))

	data, err := repo.Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, DefaultFileMode, info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestFileRepository_Canceled leaves the filesystem untouched for a canceled context.
func TestFileRepository_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "ext.crx")

	require.ErrorIs(t, NewFileRepository(0).Save(ctx, path, []byte("data")), context.Canceled)
	require.NoFileExists(t, path)
}
