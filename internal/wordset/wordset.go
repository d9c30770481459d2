// Package wordset provides compressed word-id sets used to prescreen
// loop-closure candidates before running the full pairer.
package wordset

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/mapgraph/feature"
)

// Set holds the distinct word ids of one signature plus its total
// observation count.
type Set struct {
	ids   *roaring.Bitmap
	total int
}

// FromWords builds a set from a signature's observations. Negative word ids
// do not occur in practice and are skipped.
func FromWords(w feature.Words) *Set {
	s := &Set{ids: roaring.New(), total: w.Total()}
	for id := range w {
		if id < 0 {
			continue
		}
		s.ids.Add(uint32(id))
	}
	return s
}

// Cardinality returns the number of distinct word ids.
func (s *Set) Cardinality() int {
	return int(s.ids.GetCardinality())
}

// Total returns the observation count, duplicates included.
func (s *Set) Total() int {
	return s.total
}

// OverlapBound returns an upper bound on the pairer-based similarity of the
// two signatures: shared distinct ids over the larger observation count. The
// pairer can never match more than the shared ids, so filtering candidates
// below a similarity threshold with this bound is lossless.
func OverlapBound(a, b *Set) float32 {
	if a.total == 0 || b.total == 0 {
		return 0
	}
	total := a.total
	if b.total > total {
		total = b.total
	}
	shared := roaring.And(a.ids, b.ids).GetCardinality()
	return float32(shared) / float32(total)
}
