// Package tagindex is the in-memory "k=v" -> set of SeriesId inverted map,
// snapshotted to tags.json after every flush. There is no direct teacher
// analogue (friggdb has no tag index); this is built in the teacher's
// small-mutex-protected-map idiom seen throughout friggdb.go's blockLists
// handling, with json-iterator/go for the snapshot encoding.
package tagindex

import (
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/sydradb/sydradb/internal/sid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fileName = "tags.json"

// Index is the mutex-protected tag -> series-id-set map.
type Index struct {
	mu   sync.RWMutex
	tags map[string]map[sid.SeriesId]struct{}
}

// New returns an empty tag index.
func New() *Index {
	return &Index{tags: make(map[string]map[sid.SeriesId]struct{})}
}

// Load reads dir/tags.json into a new Index if present; a missing file
// is not an error (fresh engine).
func Load(dir string) (*Index, error) {
	idx := New()

	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading tags.json")
	}

	var flat map[string][]sid.SeriesId
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, errors.Wrap(err, "parsing tags.json")
	}

	for tag, ids := range flat {
		set := make(map[sid.SeriesId]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		idx.tags[tag] = set
	}

	return idx, nil
}

// NoteTags parses tagsJSON as a flat object and inserts "k=v" -> seriesID
// for every string-valued field. Non-object input is ignored.
func (idx *Index) NoteTags(seriesID sid.SeriesId, tagsJSON string) error {
	if tagsJSON == "" {
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(tagsJSON), &raw); err != nil {
		// non-object input is ignored, not an error, per spec.
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		key := k + "=" + s
		set, ok := idx.tags[key]
		if !ok {
			set = make(map[sid.SeriesId]struct{})
			idx.tags[key] = set
		}
		set[seriesID] = struct{}{}
	}

	return nil
}

// SeriesFor returns the set of series ids tagged with "k=v".
func (idx *Index) SeriesFor(tag string) []sid.SeriesId {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	set := idx.tags[tag]
	out := make([]sid.SeriesId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Save snapshots the index to dir/tags.json.
func (idx *Index) Save(dir string) error {
	idx.mu.RLock()
	flat := make(map[string][]sid.SeriesId, len(idx.tags))
	for tag, set := range idx.tags {
		ids := make([]sid.SeriesId, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		flat[tag] = ids
	}
	idx.mu.RUnlock()

	data, err := json.Marshal(flat)
	if err != nil {
		return errors.Wrap(err, "marshaling tags.json")
	}

	path := filepath.Join(dir, fileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing tags.json temp file")
	}
	return errors.Wrap(os.Rename(tmp, path), "publishing tags.json")
}
