package signature

import (
	"github.com/hupe1980/mapgraph/feature"
	"github.com/hupe1980/mapgraph/transform"
)

// Record is the serializable form of a Signature. Payload buffers may be
// stored compressed; the archive layer owns that and restores them before
// calling FromRecord.
type Record struct {
	ID     int `json:"id"`
	MapID  int `json:"map_id"`
	Weight int `json:"weight"`

	Pose           transform.Transform `json:"pose"`
	LocalTransform transform.Transform `json:"local_transform"`

	Image   []byte      `json:"image,omitempty"`
	Depth   []byte      `json:"depth,omitempty"`
	Depth2D []byte      `json:"depth2d,omitempty"`
	Calib   Calibration `json:"calib"`

	Words        feature.Words `json:"words,omitempty"`
	WordsChanged []Remap       `json:"words_changed,omitempty"`

	Neighbors         map[int]transform.Transform `json:"neighbors,omitempty"`
	LoopClosures      map[int]transform.Transform `json:"loop_closures,omitempty"`
	ChildLoopClosures map[int]transform.Transform `json:"child_loop_closures,omitempty"`

	Enabled bool `json:"enabled,omitempty"`
}

// Snapshot captures the full signature state for persistence.
func (s *Signature) Snapshot() Record {
	return Record{
		ID:                s.id,
		MapID:             s.mapID,
		Weight:            s.weight,
		Pose:              s.pose,
		LocalTransform:    s.localTransform,
		Image:             s.image,
		Depth:             s.depth,
		Depth2D:           s.depth2D,
		Calib:             s.calib,
		Words:             s.words.Clone(),
		WordsChanged:      append([]Remap(nil), s.wordsChanged...),
		Neighbors:         cloneLinks(s.neighbors),
		LoopClosures:      cloneLinks(s.loopClosures),
		ChildLoopClosures: cloneLinks(s.childLoopClosures),
		Enabled:           s.enabled,
	}
}

// FromRecord rebuilds a signature from a persisted record. The result is
// clean and marked saved.
func FromRecord(rec Record) *Signature {
	s := New(rec.ID, rec.MapID, rec.Words, rec.Pose, rec.Depth2D, rec.Image, rec.Depth, rec.Calib, rec.LocalTransform)
	s.weight = rec.Weight
	s.wordsChanged = append([]Remap(nil), rec.WordsChanged...)
	s.neighbors = cloneLinks(rec.Neighbors)
	s.loopClosures = cloneLinks(rec.LoopClosures)
	s.childLoopClosures = cloneLinks(rec.ChildLoopClosures)
	s.enabled = rec.Enabled
	s.saved = true
	s.state = StateClean
	return s
}

func cloneLinks(in map[int]transform.Transform) map[int]transform.Transform {
	out := make(map[int]transform.Transform, len(in))
	for id, t := range in {
		out[id] = t
	}
	return out
}
