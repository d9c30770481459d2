// Package feature defines the visual-feature types shared across mapgraph.
//
// A word id is an integer assigned by an external vocabulary. The same id may
// be observed several times in one acquisition (repeated or ambiguous
// detections), so a signature's features form a multi-valued map from word id
// to observations.
package feature

import "sort"

// KeyPoint is a 2D feature location in image coordinates.
type KeyPoint struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Size     float32 `json:"size,omitempty"`
	Angle    float32 `json:"angle,omitempty"`
	Response float32 `json:"response,omitempty"`
	Octave   int     `json:"octave,omitempty"`
}

// Point3 is a 3D point in the node's reference frame.
type Point3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Word is one observation of a vocabulary word: the 2D detection and its 3D
// back-projection held together so they cannot drift apart.
type Word struct {
	KP KeyPoint `json:"kp"`
	P3 Point3   `json:"p3"`
}

// Words maps a word id to every observation of that id in one acquisition.
type Words map[int][]Word

// Total returns the number of observations, duplicates included.
func (w Words) Total() int {
	n := 0
	for _, obs := range w {
		n += len(obs)
	}
	return n
}

// IDs returns the distinct word ids in ascending order.
func (w Words) IDs() []int {
	ids := make([]int, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone returns a deep copy.
func (w Words) Clone() Words {
	if w == nil {
		return nil
	}
	out := make(Words, len(w))
	for id, obs := range w {
		cp := make([]Word, len(obs))
		copy(cp, obs)
		out[id] = cp
	}
	return out
}
