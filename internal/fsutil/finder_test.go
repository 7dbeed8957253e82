package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFindFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.hcl"))
	touch(t, filepath.Join(dir, "a.hcl"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "kernels", "cpu.hcl"))

	t.Run("walks directories in lexical order", func(t *testing.T) {
		files, err := FindFilesByExtension(".hcl", dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.hcl"),
			filepath.Join(dir, "b.hcl"),
			filepath.Join(dir, "kernels", "cpu.hcl"),
		}, files)
	})

	t.Run("accepts files and removes duplicates", func(t *testing.T) {
		files, err := FindFilesByExtension(".hcl", filepath.Join(dir, "b.hcl"), dir)
		require.NoError(t, err)
		assert.Len(t, files, 3)
		assert.Equal(t, filepath.Join(dir, "b.hcl"), files[0])
	})

	t.Run("ignores files with another extension", func(t *testing.T) {
		files, err := FindFilesByExtension(".hcl", filepath.Join(dir, "notes.txt"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := FindFilesByExtension(".hcl", filepath.Join(dir, "missing"))
		assert.Error(t, err)
	})

	t.Run("empty extension panics", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = FindFilesByExtension("", dir) })
	})
}
