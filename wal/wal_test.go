package wal

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingContext struct {
	seriesIDs []uint64
	timestamps []int64
	values     []float64
}

func (r *recordingContext) OnRecord(seriesID uint64, ts int64, value float64) {
	r.seriesIDs = append(r.seriesIDs, seriesID)
	r.timestamps = append(r.timestamps, ts)
	r.values = append(r.values, value)
}

func TestAppendAndReplayRoundtrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, FsyncNone, nil)
	require.NoError(t, err)

	_, err = w.Append(42, 1000, 1.5)
	require.NoError(t, err)
	_, err = w.Append(42, 1500, 2.25)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := Open(dir, FsyncNone, nil)
	require.NoError(t, err)
	defer w2.Close()

	ctx := &recordingContext{}
	require.NoError(t, w2.Replay(ctx))

	require.Equal(t, []uint64{42, 42}, ctx.seriesIDs)
	require.Equal(t, []int64{1000, 1500}, ctx.timestamps)
	require.Equal(t, []float64{1.5, 2.25}, ctx.values)
}

func TestReplayStopsAtCorruptRecordButContinuesNextFile(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, FsyncNone, nil)
	require.NoError(t, err)
	_, err = w.Append(1, 10, 1.0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// rotate the good record out of current.wal into a dated file, then
	// corrupt a second, separate rotated file; current.wal gets one more
	// good record. Corruption in one rotated file must not block others.
	require.NoError(t, os.Rename(
		filepath.Join(dir, walDirName, currentFileName),
		filepath.Join(dir, walDirName, "1.wal"),
	))

	corruptPath := filepath.Join(dir, walDirName, "2.wal")
	buf := make([]byte, RecordHeaderLen)
	binary.LittleEndian.PutUint32(buf[0:4], 25)
	buf[4] = recordTypePut
	binary.LittleEndian.PutUint64(buf[5:13], 99)
	binary.LittleEndian.PutUint64(buf[13:21], uint64(20))
	binary.LittleEndian.PutUint64(buf[21:29], valueBits(2.0))
	binary.LittleEndian.PutUint32(buf[29:33], crc32.ChecksumIEEE(buf[4:29])+1) // wrong crc
	require.NoError(t, os.WriteFile(corruptPath, buf, 0o644))

	w3, err := Open(dir, FsyncNone, nil)
	require.NoError(t, err)
	defer w3.Close()
	_, err = w3.Append(3, 30, 3.0)
	require.NoError(t, err)

	ctx := &recordingContext{}
	require.NoError(t, w3.Replay(ctx))

	// 1.wal contributes its record, 2.wal is corrupt (contributes nothing),
	// current.wal contributes its record.
	require.Equal(t, []uint64{1, 3}, ctx.seriesIDs)
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, FsyncNone, nil)
	require.NoError(t, err)
	defer w.Close()

	w.bytesWritten = rotateThreshold
	require.NoError(t, w.RotateIfNeeded(123456))

	require.Equal(t, int64(0), w.BytesWritten())
	_, err = os.Stat(filepath.Join(dir, walDirName, "123456.wal"))
	require.NoError(t, err)
}
