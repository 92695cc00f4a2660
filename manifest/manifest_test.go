package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/internal/sid"
)

func TestAddPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrInit(dir, nil)
	require.NoError(t, err)

	seriesID := sid.FromName("cpu.total")
	require.NoError(t, m.Add(Entry{SeriesID: seriesID, HourBucket: 0, StartTs: 1000, EndTs: 1500, Count: 2, Path: "segments/0/a.seg"}))
	require.NoError(t, m.Close())

	m2, err := LoadOrInit(dir, nil)
	require.NoError(t, err)
	defer m2.Close()

	entries := m2.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, seriesID, entries[0].SeriesID)

	maxEnd, ok := m2.MaxEndTs(seriesID)
	require.True(t, ok)
	require.Equal(t, int64(1500), maxEnd)
}

func TestMaxEndTsAcrossMultipleEntries(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrInit(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	seriesID := sid.FromName("s")
	require.NoError(t, m.Add(Entry{SeriesID: seriesID, StartTs: 0, EndTs: 100, Path: "a"}))
	require.NoError(t, m.Add(Entry{SeriesID: seriesID, StartTs: 200, EndTs: 300, Path: "b"}))

	maxEnd, ok := m.MaxEndTs(seriesID)
	require.True(t, ok)
	require.Equal(t, int64(300), maxEnd)

	_, ok = m.MaxEndTs(sid.FromName("unknown"))
	require.False(t, ok)
}

func TestRemoveDropsEntryFromMirror(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadOrInit(dir, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Add(Entry{Path: "a"}))
	require.NoError(t, m.Add(Entry{Path: "b"}))

	m.Remove("a")
	entries := m.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "b", entries[0].Path)
}

func TestLoadExistingSkipsCorruptLineAndKeepsStartupAlive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "segments"), 0o755))

	good := `{"series_id":1,"hour_bucket":0,"start_ts":0,"end_ts":100,"count":1,"path":"a"}` + "\n"
	bad := "{not valid json\n"
	good2 := `{"series_id":2,"hour_bucket":0,"start_ts":0,"end_ts":200,"count":1,"path":"b"}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, fileName), []byte(good+bad+good2), 0o644))

	m, err := LoadOrInit(dir, nil)
	require.NoError(t, err, "a single malformed manifest line must not abort startup")
	defer m.Close()

	entries := m.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].Path)
	require.Equal(t, "b", entries[1].Path)
}
