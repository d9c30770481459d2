package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mapgraph/feature"
	"github.com/hupe1980/mapgraph/transform"
)

func TestSnapshotFromRecord(t *testing.T) {
	s := New(7, 2,
		feature.Words{5: {kp(1, 2)}, 9: {kp(3, 4), kp(5, 6)}},
		transform.New(1, 2, 3, 0, 0, 0),
		[]byte{9}, []byte{1, 2}, []byte{3, 4, 5},
		Calibration{FX: 525, FY: 525, CX: 319.5, CY: 239.5},
		transform.Identity(),
	)
	s.SetWeight(4)
	s.AddNeighbor(6, transform.New(0.1, 0, 0, 0, 0, 0))
	s.AddLoopClosureID(3, transform.Identity())
	s.AddChildLoopClosureID(8, transform.Identity())
	s.ChangeWordsRef(5, 11)
	s.SetEnabled(true)

	restored := FromRecord(s.Snapshot())

	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, s.MapID(), restored.MapID())
	assert.Equal(t, s.Weight(), restored.Weight())
	assert.Equal(t, s.Pose(), restored.Pose())
	assert.Equal(t, s.Words(), restored.Words())
	assert.Equal(t, s.WordsChanged(), restored.WordsChanged())
	assert.Equal(t, s.Neighbors(), restored.Neighbors())
	assert.Equal(t, s.LoopClosureIDs(), restored.LoopClosureIDs())
	assert.Equal(t, s.ChildLoopClosureIDs(), restored.ChildLoopClosureIDs())
	assert.Equal(t, s.Image(), restored.Image())
	assert.Equal(t, s.Depth(), restored.Depth())
	assert.Equal(t, s.Depth2D(), restored.Depth2D())
	assert.Equal(t, s.Calibration(), restored.Calibration())
	assert.True(t, restored.Enabled())

	// A restored signature is persisted state: clean and saved.
	assert.True(t, restored.Saved())
	assert.Equal(t, StateClean, restored.State())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New(1, 0, feature.Words{5: {kp(1, 2)}}, transform.Identity(), nil, nil, nil, Calibration{}, transform.Identity())
	rec := s.Snapshot()

	s.ChangeWordsRef(5, 9)
	s.AddNeighbor(2, transform.Identity())

	require.Contains(t, rec.Words, 5)
	assert.Empty(t, rec.WordsChanged)
	assert.Empty(t, rec.Neighbors)
}
