// Package signature implements the map-node entity of a visual mapping
// system: one Signature per sensor acquisition, carrying the extracted
// feature observations, the raw sensor payload and calibration, and the
// node's pose-graph links.
//
// A Signature has no internal locking. It is owned by exactly one graph
// store, which serializes mutation.
package signature

import (
	"fmt"

	"github.com/hupe1980/mapgraph/feature"
	"github.com/hupe1980/mapgraph/pair"
	"github.com/hupe1980/mapgraph/transform"
)

// Calibration holds pinhole camera intrinsics.
type Calibration struct {
	FX float32 `json:"fx"`
	FY float32 `json:"fy"`
	CX float32 `json:"cx"`
	CY float32 `json:"cy"`
}

// Valid reports whether the intrinsics can re-project depth pixels.
func (c Calibration) Valid() bool {
	return c.FX > 0 && c.FY > 0 && c.CX >= 0 && c.CY >= 0
}

// Remap is one entry of the word-remap ledger: observations recorded under
// From were relabeled to To by the vocabulary.
type Remap struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Signature is one keyframe node in the map graph.
type Signature struct {
	id     int
	mapID  int
	weight int

	pose           transform.Transform
	localTransform transform.Transform

	image   []byte // camera frame
	depth   []byte // camera frame
	depth2D []byte // reference frame
	calib   Calibration

	words        feature.Words
	wordsChanged []Remap

	neighbors         map[int]transform.Transform
	loopClosures      map[int]transform.Transform
	childLoopClosures map[int]transform.Transform

	state   DirtyState
	saved   bool
	enabled bool
}

// New creates a signature for one sensor acquisition. id, mapID, pose,
// payloads, calibration and localTransform are fixed for the signature's
// lifetime. The words map is deep-copied.
//
// Calibration is deliberately not validated here: a signature may carry a
// transient invalid calibration until SetDepth installs a usable one.
func New(
	id, mapID int,
	words feature.Words,
	pose transform.Transform,
	depth2D, image, depth []byte,
	calib Calibration,
	localTransform transform.Transform,
) *Signature {
	return &Signature{
		id:                id,
		mapID:             mapID,
		words:             words.Clone(),
		pose:              pose,
		localTransform:    localTransform,
		image:             image,
		depth:             depth,
		depth2D:           depth2D,
		calib:             calib,
		neighbors:         make(map[int]transform.Transform),
		loopClosures:      make(map[int]transform.Transform),
		childLoopClosures: make(map[int]transform.Transform),
		state:             StateDirty,
	}
}

// ID returns the node id.
func (s *Signature) ID() int { return s.id }

// MapID returns the id of the map/session this node belongs to.
func (s *Signature) MapID() int { return s.mapID }

// Weight returns the retention weight.
func (s *Signature) Weight() int { return s.weight }

// SetWeight updates the retention weight and marks the content dirty.
func (s *Signature) SetWeight(w int) {
	s.weight = w
	s.state = s.state.withContent()
}

// Pose returns the node pose in its reference frame.
func (s *Signature) Pose() transform.Transform { return s.pose }

// LocalTransform returns the sensor-to-reference-frame transform.
func (s *Signature) LocalTransform() transform.Transform { return s.localTransform }

// Image returns the raw image payload. Callers must not mutate it.
func (s *Signature) Image() []byte { return s.image }

// Depth returns the raw depth payload. Callers must not mutate it.
func (s *Signature) Depth() []byte { return s.depth }

// Depth2D returns the raw 2D depth scan payload. Callers must not mutate it.
func (s *Signature) Depth2D() []byte { return s.depth2D }

// Calibration returns the camera intrinsics.
func (s *Signature) Calibration() Calibration { return s.calib }

// Words returns the feature observations keyed by word id. Callers must not
// mutate the returned map.
func (s *Signature) Words() feature.Words { return s.words }

// WordCount returns the number of observations, duplicates included.
func (s *Signature) WordCount() int { return s.words.Total() }

// WordsChanged returns the word-remap ledger in append order. The ledger
// grows monotonically; it is never pruned by the signature.
func (s *Signature) WordsChanged() []Remap { return s.wordsChanged }

// Neighbors returns the odometry links keyed by neighbor id. Callers must
// not mutate the returned map.
func (s *Signature) Neighbors() map[int]transform.Transform { return s.neighbors }

// LoopClosureIDs returns the loop-closure links where this node is the
// detector side.
func (s *Signature) LoopClosureIDs() map[int]transform.Transform { return s.loopClosures }

// ChildLoopClosureIDs returns the loop-closure links where this node is the
// child side.
func (s *Signature) ChildLoopClosureIDs() map[int]transform.Transform { return s.childLoopClosures }

// HasNeighbor reports whether a link to id exists.
func (s *Signature) HasNeighbor(id int) bool {
	_, ok := s.neighbors[id]
	return ok
}

// AddNeighbor inserts or overwrites the link to neighbor. The edge set is
// always marked dirty, even when the transform is unchanged.
func (s *Signature) AddNeighbor(neighbor int, t transform.Transform) {
	s.neighbors[neighbor] = t
	s.state = s.state.withEdges()
}

// AddNeighbors applies AddNeighbor for every entry.
func (s *Signature) AddNeighbors(neighbors map[int]transform.Transform) {
	for id, t := range neighbors {
		s.AddNeighbor(id, t)
	}
}

// RemoveNeighbor erases the link to neighbor if present. The edge set is
// marked dirty only when a link was actually removed.
func (s *Signature) RemoveNeighbor(neighbor int) {
	if _, ok := s.neighbors[neighbor]; ok {
		delete(s.neighbors, neighbor)
		s.state = s.state.withEdges()
	}
}

// RemoveNeighbors clears all neighbor links. The edge set is marked dirty
// only when it was non-empty.
func (s *Signature) RemoveNeighbors() {
	if len(s.neighbors) > 0 {
		s.state = s.state.withEdges()
	}
	s.neighbors = make(map[int]transform.Transform)
}

// ChangeNeighborIDs moves the link keyed from to the key to, keeping its
// transform. Absent from is a silent no-op and leaves the dirty state
// untouched.
func (s *Signature) ChangeNeighborIDs(from, to int) {
	t, ok := s.neighbors[from]
	if !ok {
		return
	}
	delete(s.neighbors, from)
	s.neighbors[to] = t
	s.state = s.state.withEdges()
}

// AddLoopClosureID inserts a detector-side loop-closure link. Id 0 is the
// "no link" sentinel and is ignored; an existing link keeps its transform
// (first writer wins). The edge set is marked dirty only on a successful
// first insertion.
func (s *Signature) AddLoopClosureID(id int, t transform.Transform) {
	if id == 0 {
		return
	}
	if _, ok := s.loopClosures[id]; ok {
		return
	}
	s.loopClosures[id] = t
	s.state = s.state.withEdges()
}

// AddChildLoopClosureID inserts a child-side loop-closure link with the same
// sentinel and first-writer-wins rules as AddLoopClosureID.
func (s *Signature) AddChildLoopClosureID(id int, t transform.Transform) {
	if id == 0 {
		return
	}
	if _, ok := s.childLoopClosures[id]; ok {
		return
	}
	s.childLoopClosures[id] = t
	s.state = s.state.withEdges()
}

// ChangeLoopClosureID moves the detector-side link keyed from to the key to.
// Child-side links are intentionally not touched; callers renumbering both
// sides must update the child signature themselves.
func (s *Signature) ChangeLoopClosureID(from, to int) {
	t, ok := s.loopClosures[from]
	if !ok {
		return
	}
	delete(s.loopClosures, from)
	s.loopClosures[to] = t
	s.state = s.state.withEdges()
}

// RemoveWord erases all observations of the given word id.
func (s *Signature) RemoveWord(id int) {
	delete(s.words, id)
}

// RemoveAllWords erases every observation.
func (s *Signature) RemoveAllWords() {
	s.words = make(feature.Words)
}

// ChangeWordsRef relabels every observation of oldID to activeID, preserving
// multiplicity, and appends the remap to the ledger. A vocabulary process
// uses this to retroactively merge word ids without re-running detection.
// No-op when oldID has no observations.
func (s *Signature) ChangeWordsRef(oldID, activeID int) {
	obs := s.words[oldID]
	if len(obs) == 0 {
		return
	}
	delete(s.words, oldID)
	s.words[activeID] = append(s.words[activeID], obs...)
	s.wordsChanged = append(s.wordsChanged, Remap{From: oldID, To: activeID})
}

// IsBad reports whether the signature carries no usable content (no word
// observations, empty observation slices included). The owner discards bad
// signatures.
func (s *Signature) IsBad() bool {
	return s.words.Total() == 0
}

// SetDepth replaces the depth payload and intrinsics atomically.
//
// Non-empty depth with invalid intrinsics panics: accepting malformed
// calibration would silently corrupt every downstream 3D re-projection.
// Empty depth accepts any intrinsics.
func (s *Signature) SetDepth(depth []byte, calib Calibration) {
	if len(depth) > 0 && !calib.Valid() {
		panic(fmt.Sprintf("signature %d: invalid calibration fx=%v fy=%v cx=%v cy=%v for non-empty depth",
			s.id, calib.FX, calib.FY, calib.CX, calib.CY))
	}
	s.depth = depth
	s.calib = calib
}

// CompareTo returns the similarity of this signature to other as the number
// of pairer correspondences divided by the larger of the two observation
// counts. The fixed denominator makes scores comparable across candidates
// sharing s as the query. Returns 0 when either side has no observations.
//
// Symmetry is a property of the pairer, not of this method.
func (s *Signature) CompareTo(other *Signature, p pair.Pairer) float32 {
	if other == nil {
		return 0
	}
	ta, tb := s.words.Total(), other.words.Total()
	if ta == 0 || tb == 0 {
		return 0
	}
	total := ta
	if tb > total {
		total = tb
	}
	pairs := p.Pairs(other.words, s.words)
	return float32(len(pairs)) / float32(total)
}

// Saved reports whether the owner has persisted this signature at least once.
func (s *Signature) Saved() bool { return s.saved }

// SetSaved records whether the signature has been persisted.
func (s *Signature) SetSaved(saved bool) { s.saved = saved }

// Enabled reports the owner-controlled activation flag.
func (s *Signature) Enabled() bool { return s.enabled }

// SetEnabled sets the owner-controlled activation flag.
func (s *Signature) SetEnabled(enabled bool) { s.enabled = enabled }

// State returns the dirty state.
func (s *Signature) State() DirtyState { return s.state }

// Modified reports whether core content changed since the last persist.
func (s *Signature) Modified() bool { return s.state.Content() }

// NeighborsModified reports whether any graph link changed since the last
// persist.
func (s *Signature) NeighborsModified() bool { return s.state.Edges() }

// MarkClean resets the dirty state after a persist.
func (s *Signature) MarkClean() { s.state = StateClean }

// MarkContentDirty flags the core content as changed. The owner calls this
// when it mutates content the signature cannot see changing (e.g. after
// in-place payload swaps).
func (s *Signature) MarkContentDirty() { s.state = s.state.withContent() }
