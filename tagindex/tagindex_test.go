package tagindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/internal/sid"
)

func TestNoteTagsIndexesStringFields(t *testing.T) {
	idx := New()
	seriesID := sid.FromName("cpu.total")

	require.NoError(t, idx.NoteTags(seriesID, `{"host":"a","region":"us"}`))

	require.Equal(t, []sid.SeriesId{seriesID}, idx.SeriesFor("host=a"))
	require.Equal(t, []sid.SeriesId{seriesID}, idx.SeriesFor("region=us"))
	require.Empty(t, idx.SeriesFor("host=b"))
}

func TestNoteTagsIgnoresNonObjectInput(t *testing.T) {
	idx := New()
	require.NoError(t, idx.NoteTags(sid.FromName("x"), `[1,2,3]`))
	require.NoError(t, idx.NoteTags(sid.FromName("x"), `not json`))
	require.Empty(t, idx.SeriesFor("host=a"))
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	idx := New()
	seriesID := sid.FromName("cpu.total")
	require.NoError(t, idx.NoteTags(seriesID, `{"host":"a"}`))
	require.NoError(t, idx.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []sid.SeriesId{seriesID}, loaded.SeriesFor("host=a"))
}

func TestLoadMissingFileReturnsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := Load(dir)
	require.NoError(t, err)
	require.Empty(t, idx.SeriesFor("host=a"))
}
