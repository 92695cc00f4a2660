package retention

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/manifest"
)

func TestApplyRemovesExpiredSegmentsOnly(t *testing.T) {
	dir := t.TempDir()
	m, err := manifest.LoadOrInit(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "segments", "0"), 0o755))
	oldPath := filepath.Join("segments", "0", "old.seg")
	newPath := filepath.Join("segments", "0", "new.seg")
	require.NoError(t, os.WriteFile(filepath.Join(dir, oldPath), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, newPath), []byte("x"), 0o644))

	require.NoError(t, m.Add(manifest.Entry{EndTs: 0, Path: oldPath}))
	require.NoError(t, m.Add(manifest.Entry{EndTs: 1_000_000_000, Path: newPath}))

	Apply(dir, m, 0, 86400, nil)

	_, err = os.Stat(filepath.Join(dir, oldPath))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, newPath))
	require.NoError(t, err)

	entries := m.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, newPath, entries[0].Path)
}

func TestApplyToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	m, err := manifest.LoadOrInit(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Add(manifest.Entry{EndTs: 0, Path: "segments/0/missing.seg"}))

	require.NotPanics(t, func() {
		Apply(dir, m, 0, 86400, nil)
	})
	require.Empty(t, m.Entries())
}
