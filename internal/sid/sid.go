// Package sid derives the stable 64-bit identity sydraDB uses for a series.
package sid

import "github.com/cespare/xxhash/v2"

// SeriesId uniquely identifies a logical time series. Collisions are
// tolerated as correctness-equivalent: series identity is the id.
type SeriesId uint64

// FromName hashes a bare series name, e.g. "cpu.total".
func FromName(name string) SeriesId {
	return SeriesId(xxhash.Sum64String(name))
}

// FromNameAndTags hashes a series name together with its canonical tag
// payload, e.g. `name|{"host":"a"}`. Callers that want tag-qualified
// identity (rather than name-only identity) use this form.
func FromNameAndTags(name string, tagsJSON string) SeriesId {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(tagsJSON)
	return SeriesId(h.Sum64())
}
