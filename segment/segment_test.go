package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/internal/sid"
)

func removeSegmentFile(dir, relPath string) error {
	return os.Remove(filepath.Join(dir, relPath))
}

func TestWriteAndQueryRangeRoundtrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	seriesID := sid.FromName("cpu.total")
	points := []Point{{Ts: 1000, Value: 1.5}, {Ts: 1500, Value: 2.25}}

	path, err := w.WriteSegment(seriesID, 0, points)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	r := NewReader(dir, nil)
	entries := []ManifestEntry{{SeriesID: seriesID, HourBucket: 0, StartTs: 1000, EndTs: 1500, Count: 2, Path: path}}

	var out []Point
	require.NoError(t, r.QueryRange(entries, seriesID, 0, 10000, &out))
	require.Equal(t, points, out)
}

func TestQueryRangeFiltersBySeriesAndWindow(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	sidA := sid.FromName("a")
	sidB := sid.FromName("b")

	pathA, err := w.WriteSegment(sidA, 0, []Point{{Ts: 10, Value: 1}, {Ts: 20, Value: 2}, {Ts: 30, Value: 3}})
	require.NoError(t, err)
	pathB, err := w.WriteSegment(sidB, 0, []Point{{Ts: 15, Value: 9}})
	require.NoError(t, err)

	entries := []ManifestEntry{
		{SeriesID: sidA, StartTs: 10, EndTs: 30, Path: pathA},
		{SeriesID: sidB, StartTs: 15, EndTs: 15, Path: pathB},
	}

	r := NewReader(dir, nil)
	var out []Point
	require.NoError(t, r.QueryRange(entries, sidA, 15, 25, &out))
	require.Equal(t, []Point{{Ts: 20, Value: 2}}, out)
}

func TestReadCacheReusesDecodedPoints(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	seriesID := sid.FromName("cached")
	path, err := w.WriteSegment(seriesID, 0, []Point{{Ts: 1, Value: 1}})
	require.NoError(t, err)

	r := NewReader(dir, nil)
	entries := []ManifestEntry{{SeriesID: seriesID, StartTs: 1, EndTs: 1, Path: path}}

	var out1, out2 []Point
	require.NoError(t, r.QueryRange(entries, seriesID, 0, 10, &out1))
	require.NoError(t, r.QueryRange(entries, seriesID, 0, 10, &out2))
	require.Equal(t, out1, out2)

	cached, ok := r.cache.get(path)
	require.True(t, ok)
	require.Equal(t, out1, cached)
}

func TestQueryRangeSkipsConcurrentlyDeletedSegmentFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	sidA := sid.FromName("a")
	sidB := sid.FromName("b")

	pathA, err := w.WriteSegment(sidA, 0, []Point{{Ts: 10, Value: 1}})
	require.NoError(t, err)
	pathB, err := w.WriteSegment(sidB, 0, []Point{{Ts: 20, Value: 2}})
	require.NoError(t, err)

	// simulate retention.Apply deleting the on-disk file out from under a
	// concurrent reader, after the manifest snapshot was already taken.
	require.NoError(t, removeSegmentFile(dir, pathA))

	entries := []ManifestEntry{
		{SeriesID: sidA, StartTs: 10, EndTs: 10, Path: pathA},
		{SeriesID: sidB, StartTs: 20, EndTs: 20, Path: pathB},
	}

	r := NewReader(dir, nil)
	var outA, outB []Point
	require.NoError(t, r.QueryRange(entries, sidA, 0, 100, &outA))
	require.Empty(t, outA, "missing segment file must be skipped, not errored")

	require.NoError(t, r.QueryRange(entries, sidB, 0, 100, &outB))
	require.Equal(t, []Point{{Ts: 20, Value: 2}}, outB, "remaining entries must still be scanned")
}
