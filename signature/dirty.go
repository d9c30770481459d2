package signature

// DirtyState tracks what changed since the signature was last persisted.
// Content covers words, payloads and weight; edges covers every graph link.
// Making the combinations explicit keeps the persistence handshake from
// juggling independent booleans.
type DirtyState uint8

const (
	// StateClean means nothing changed since the last persist.
	StateClean DirtyState = iota
	// StateContentDirty means core content changed.
	StateContentDirty
	// StateEdgesDirty means graph links changed.
	StateEdgesDirty
	// StateDirty means both content and links changed. New signatures start
	// here: a fresh node is entirely unsaved content.
	StateDirty
)

// Content reports whether the state includes content changes.
func (s DirtyState) Content() bool {
	return s == StateContentDirty || s == StateDirty
}

// Edges reports whether the state includes link changes.
func (s DirtyState) Edges() bool {
	return s == StateEdgesDirty || s == StateDirty
}

func (s DirtyState) withContent() DirtyState {
	if s.Edges() {
		return StateDirty
	}
	return StateContentDirty
}

func (s DirtyState) withEdges() DirtyState {
	if s.Content() {
		return StateDirty
	}
	return StateEdgesDirty
}

// String implements fmt.Stringer.
func (s DirtyState) String() string {
	switch s {
	case StateClean:
		return "Clean"
	case StateContentDirty:
		return "ContentDirty"
	case StateEdgesDirty:
		return "EdgesDirty"
	case StateDirty:
		return "Dirty"
	default:
		return "Unknown"
	}
}
