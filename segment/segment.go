// Package segment turns a sorted run of points for one (series, hour) into
// an immutable on-disk file, and scans those files back out for a query
// time range. The atomic write-to-temp-then-rename publish mirrors
// friggdb's headBlock.Complete (wal_head_block.go), which builds a block in
// a work directory and renames it into place only once it is fully
// written; here the payload format is sydraDB's own length-prefixed,
// s2-compressed point stream rather than friggdb's protobuf object
// framing.
package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/klauspost/compress/s2"
	"github.com/pkg/errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sydradb/sydradb/internal/sid"
)

// Point is an immutable (ts, value) sample.
type Point struct {
	Ts    int64
	Value float64
}

const segmentsDirName = "segments"

// ManifestEntry is the subset of manifest information segment needs to
// know where to read a segment file and whether it's in range. It
// mirrors manifest.Entry's shape without importing the manifest package
// (segment is a leaf; manifest depends on nothing segment-specific).
type ManifestEntry struct {
	SeriesID   sid.SeriesId
	HourBucket int64
	StartTs    int64
	EndTs      int64
	Count      uint32
	Path       string
}

// Writer produces segment files under dir/segments/<hour>/.
type Writer struct {
	dir string
}

// NewWriter creates a segment writer rooted at dir (the engine's data_dir).
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteSegment atomically publishes sortedPoints (already ascending by Ts)
// as a new segment file for (seriesID, hourBucket), returning the path
// recorded in the manifest (relative to dir).
func (w *Writer) WriteSegment(seriesID sid.SeriesId, hourBucket int64, sortedPoints []Point) (string, error) {
	hourDir := filepath.Join(w.dir, segmentsDirName, fmt.Sprintf("%d", hourBucket))
	if err := os.MkdirAll(hourDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating hour bucket directory")
	}

	name := fmt.Sprintf("%016x.%s.seg", uint64(seriesID), uuid.New().String())
	finalPath := filepath.Join(hourDir, name)
	tmpPath := finalPath + ".tmp"

	if err := writePointsFile(tmpPath, sortedPoints); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", errors.Wrap(err, "publishing segment file")
	}

	rel, err := filepath.Rel(w.dir, finalPath)
	if err != nil {
		return finalPath, nil
	}
	return rel, nil
}

func writePointsFile(path string, points []Point) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating segment temp file")
	}
	defer f.Close()

	raw := make([]byte, 0, len(points)*16)
	for _, p := range points {
		var b [16]byte
		binary.LittleEndian.PutUint64(b[0:8], uint64(p.Ts))
		binary.LittleEndian.PutUint64(b[8:16], float64bits(p.Value))
		raw = append(raw, b[:]...)
	}

	compressed := s2.Encode(nil, raw)

	bw := bufio.NewWriter(f)
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(compressed))); err != nil {
		return errors.Wrap(err, "writing segment header")
	}
	if _, err := bw.Write(compressed); err != nil {
		return errors.Wrap(err, "writing segment body")
	}
	return errors.Wrap(bw.Flush(), "flushing segment file")
}

// Reader scans segment files described by manifest entries.
type Reader struct {
	dir    string
	cache  *readCache
	logger log.Logger
}

// NewReader creates a segment reader rooted at dir. logger reports a
// segment file that has gone missing out from under a concurrent query
// (spec.md §4.3/§5: retention may delete a segment file while a reader is
// mid-scan); a nil logger is replaced with a no-op one, matching
// retention.Apply's convention.
func NewReader(dir string, logger log.Logger) *Reader {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Reader{dir: dir, cache: newReadCache(64), logger: logger}
}

// QueryRange appends to out every point with Ts in [startTs, endTs]
// (inclusive) found in entries whose SeriesID matches seriesID and whose
// [StartTs, EndTs] intersects the query range. Entries are visited in the
// order given (manifest iteration order); points within one file are
// appended in their on-disk (ascending) order. A segment file that has
// been concurrently removed (e.g. by retention) is logged and skipped,
// per manifest.Remove's "a missing file is skipped by readers" contract;
// only a genuine I/O error aborts the query.
func (r *Reader) QueryRange(entries []ManifestEntry, seriesID sid.SeriesId, startTs, endTs int64, out *[]Point) error {
	for _, e := range entries {
		if e.SeriesID != seriesID {
			continue
		}
		if e.EndTs < startTs || e.StartTs > endTs {
			continue
		}

		points, err := r.readFile(e.Path)
		if err != nil {
			if os.IsNotExist(err) {
				level.Warn(r.logger).Log("msg", "segment file missing, skipping", "path", e.Path)
				continue
			}
			return errors.Wrapf(err, "reading segment %s", e.Path)
		}

		for _, p := range points {
			if p.Ts >= startTs && p.Ts <= endTs {
				*out = append(*out, p)
			}
		}
	}
	return nil
}

func (r *Reader) readFile(relPath string) ([]Point, error) {
	if points, ok := r.cache.get(relPath); ok {
		return points, nil
	}

	full := filepath.Join(r.dir, relPath)
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lenBuf [4]byte
	if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "reading segment length header")
	}
	compressedLen := binary.LittleEndian.Uint32(lenBuf[:])

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(f, compressed); err != nil {
		return nil, errors.Wrap(err, "reading segment body")
	}

	raw, err := s2.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing segment body")
	}

	points := make([]Point, 0, len(raw)/16)
	for i := 0; i+16 <= len(raw); i += 16 {
		ts := int64(binary.LittleEndian.Uint64(raw[i : i+8]))
		value := float64frombits(binary.LittleEndian.Uint64(raw[i+8 : i+16]))
		points = append(points, Point{Ts: ts, Value: value})
	}

	r.cache.put(relPath, points)
	return points, nil
}

// readCache is a bounded LRU of decoded segment point-runs keyed by
// relative path, avoiding re-decompressing a hot (series, hour) file on
// repeated query_range calls within a tight query loop.
type readCache struct {
	c *lru.Cache[string, []Point]
}

func newReadCache(size int) *readCache {
	c, err := lru.New[string, []Point](size)
	if err != nil {
		// size is a compile-time constant > 0 here; this cannot happen.
		panic(err)
	}
	return &readCache{c: c}
}

func (r *readCache) get(key string) ([]Point, bool) {
	return r.c.Get(key)
}

func (r *readCache) put(key string, points []Point) {
	r.c.Add(key, points)
}
