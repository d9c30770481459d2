// Package pair matches two feature sets into word correspondences.
//
// Pairing is a pluggable capability: the graph and signatures only depend on
// the Pairer interface, so a descriptor-based matcher can replace the default
// vocabulary-id pairer without touching node logic.
package pair

import (
	"sort"

	"github.com/hupe1980/mapgraph/feature"
)

// Match is one correspondence between two feature sets.
type Match struct {
	WordID int
	A      feature.KeyPoint
	B      feature.KeyPoint
}

// Pairer produces correspondences between two feature sets.
//
// Implementations must emit at most one match per word id; ambiguity among
// repeated detections under the same id is the pairer's to resolve.
type Pairer interface {
	Pairs(a, b feature.Words) []Match
}

// UniqueWords pairs word ids that occur exactly once on each side. Ids with
// repeated detections are ambiguous without descriptor information and are
// skipped entirely.
//
// The match count is independent of argument order, so similarity scores
// built on it are symmetric.
type UniqueWords struct{}

// Pairs implements Pairer. Matches are returned in ascending word-id order.
func (UniqueWords) Pairs(a, b feature.Words) []Match {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	small, large := a, b
	swapped := false
	if len(b) < len(a) {
		small, large = b, a
		swapped = true
	}

	var matches []Match
	for id, obsSmall := range small {
		if len(obsSmall) != 1 {
			continue
		}
		obsLarge, ok := large[id]
		if !ok || len(obsLarge) != 1 {
			continue
		}
		m := Match{WordID: id, A: obsSmall[0].KP, B: obsLarge[0].KP}
		if swapped {
			m.A, m.B = m.B, m.A
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].WordID < matches[j].WordID })
	return matches
}
