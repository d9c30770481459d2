package mapgraph

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mapgraph/archive"
	"github.com/hupe1980/mapgraph/codec"
	"github.com/hupe1980/mapgraph/feature"
	"github.com/hupe1980/mapgraph/internal/wordset"
	"github.com/hupe1980/mapgraph/pair"
	"github.com/hupe1980/mapgraph/resource"
	"github.com/hupe1980/mapgraph/signature"
	"github.com/hupe1980/mapgraph/transform"
)

// LinkKind selects the edge type created by AddLink.
type LinkKind uint8

const (
	// LinkNeighbor is a temporal/odometry edge. It is inserted on both
	// signatures (the inverse transform on the far side).
	LinkNeighbor LinkKind = iota
	// LinkLoopClosure is a place-recognition edge: detector side on from,
	// child side on to.
	LinkLoopClosure
)

// Acquisition carries the per-keyframe sensor data handed to Create.
type Acquisition struct {
	Pose           transform.Transform
	Image          []byte // camera frame
	Depth          []byte // camera frame
	Depth2D        []byte // reference frame
	Calibration    signature.Calibration
	LocalTransform transform.Transform
}

// Candidate is one scored loop-closure candidate.
type Candidate struct {
	ID         int
	Similarity float32
}

// Graph owns the map's signatures and serializes every mutation. It is the
// single writer the signature entity assumes.
type Graph struct {
	mu sync.RWMutex

	session uuid.UUID
	mapID   int
	nextID  int

	signatures map[int]*signature.Signature
	wordSets   map[int]*wordset.Set

	pairer      pair.Pairer
	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression codec.Compression
	store       archive.Store
	manifests   archive.ManifestStore
	res         *resource.Controller
}

// New creates an empty graph.
func New(optFns ...Option) *Graph {
	o := applyOptions(optFns)

	return &Graph{
		session:     uuid.New(),
		mapID:       o.mapID,
		nextID:      1, // id 0 is the "no link" sentinel
		signatures:  make(map[int]*signature.Signature),
		wordSets:    make(map[int]*wordset.Set),
		pairer:      o.pairer,
		logger:      o.logger,
		metrics:     o.metrics,
		codec:       o.codec,
		compression: o.compression,
		store:       o.store,
		manifests:   o.manifests,
		res:         resource.NewController(o.resCfg),
	}
}

// Session returns the unique id of this graph instance, used to namespace
// archive blobs.
func (g *Graph) Session() uuid.UUID { return g.session }

// MapID returns the map/session id stamped on created signatures.
func (g *Graph) MapID() int { return g.mapID }

// Len returns the number of resident signatures.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.signatures)
}

// IDs returns the resident signature ids in ascending order.
func (g *Graph) IDs() []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]int, 0, len(g.signatures))
	for id := range g.signatures {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Get returns the signature with the given id.
func (g *Graph) Get(id int) (*signature.Signature, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.signatures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Has reports whether the graph holds the given id.
func (g *Graph) Has(id int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.signatures[id]
	return ok
}

// Create builds a signature for one acquisition under the next free id and
// registers it. Blocks when a payload memory limit is configured and
// exhausted.
func (g *Graph) Create(ctx context.Context, words feature.Words, acq Acquisition) (*signature.Signature, error) {
	if err := g.res.AcquireMemory(ctx, payloadSize(acq.Image, acq.Depth, acq.Depth2D)); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.nextID
	g.nextID++

	s := signature.New(id, g.mapID, words, acq.Pose, acq.Depth2D, acq.Image, acq.Depth, acq.Calibration, acq.LocalTransform)
	s.SetEnabled(true) // registered words are active in this graph
	g.signatures[id] = s
	g.wordSets[id] = wordset.FromWords(s.Words())

	g.logger.Debug("signature created", "signature", id, "words", s.WordCount(), "bad", s.IsBad())
	return s, nil
}

// Add registers an externally built signature (e.g. a restored one) under
// its own id.
func (g *Graph) Add(s *signature.Signature) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(s)
}

func (g *Graph) addLocked(s *signature.Signature) error {
	id := s.ID()
	if _, ok := g.signatures[id]; ok {
		return &ErrDuplicateID{ID: id}
	}
	g.signatures[id] = s
	g.wordSets[id] = wordset.FromWords(s.Words())
	if id >= g.nextID {
		g.nextID = id + 1
	}
	return nil
}

// Remove drops a signature from the graph. Links held by other signatures
// are not touched; callers renumbering the graph use MergeIDs.
func (g *Graph) Remove(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.signatures[id]
	if !ok {
		return ErrNotFound
	}
	delete(g.signatures, id)
	delete(g.wordSets, id)
	g.res.ReleaseMemory(payloadSize(s.Image(), s.Depth(), s.Depth2D()))

	g.logger.Debug("signature removed", "signature", id)
	return nil
}

// AddLink creates an edge between two resident signatures.
func (g *Graph) AddLink(from, to int, t transform.Transform, kind LinkKind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.signatures[from]
	if !ok {
		return ErrNotFound
	}
	dst, ok := g.signatures[to]
	if !ok {
		return ErrNotFound
	}

	switch kind {
	case LinkLoopClosure:
		src.AddLoopClosureID(to, t)
		dst.AddChildLoopClosureID(from, t.Inverse())
	default:
		src.AddNeighbor(to, t)
		dst.AddNeighbor(from, t.Inverse())
	}
	return nil
}

// MergeIDs rewires every neighbor and detector-side loop-closure edge
// pointing at from to point at to, across all resident signatures.
// Child-side loop-closure links keep tracking their detector and are left
// untouched.
func (g *Graph) MergeIDs(from, to int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range g.signatures {
		s.ChangeNeighborIDs(from, to)
		s.ChangeLoopClosureID(from, to)
	}
	g.logger.Debug("edges renumbered", "from", from, "to", to)
}

// RemapWord relabels oldID to activeID on every resident signature holding
// it, on behalf of the external vocabulary. Returns the number of
// signatures touched.
func (g *Graph) RemapWord(oldID, activeID int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	touched := 0
	for id, s := range g.signatures {
		if _, ok := s.Words()[oldID]; !ok {
			continue
		}
		s.ChangeWordsRef(oldID, activeID)
		s.MarkContentDirty()
		g.wordSets[id] = wordset.FromWords(s.Words())
		touched++
	}
	if touched > 0 {
		g.logger.Debug("word remapped", "old", oldID, "active", activeID, "signatures", touched)
	}
	return touched
}

// Compare scores signature a against signature b with the configured pairer.
func (g *Graph) Compare(aID, bID int) (float32, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	a, ok := g.signatures[aID]
	if !ok {
		return 0, ErrNotFound
	}
	b, ok := g.signatures[bID]
	if !ok {
		return 0, ErrNotFound
	}
	return a.CompareTo(b, g.pairer), nil
}

// DetectLoopClosures scores the query signature against every other enabled
// resident signature and returns candidates at or above minSimilarity,
// best first. The query's direct neighbors are skipped: adjacent nodes are
// not loop closures. Candidates are prescreened with a word-overlap upper
// bound before the pairer runs.
func (g *Graph) DetectLoopClosures(ctx context.Context, queryID int, minSimilarity float32) ([]Candidate, error) {
	start := time.Now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	query, ok := g.signatures[queryID]
	if !ok {
		g.metrics.RecordDetect(0, time.Since(start), ErrNotFound)
		return nil, ErrNotFound
	}
	if query.IsBad() {
		g.metrics.RecordDetect(0, time.Since(start), nil)
		return nil, nil
	}

	querySet := g.wordSets[queryID]
	candidates := make([]*signature.Signature, 0, len(g.signatures))
	for id, s := range g.signatures {
		if id == queryID || !s.Enabled() || query.HasNeighbor(id) {
			continue
		}
		if wordset.OverlapBound(querySet, g.wordSets[id]) < minSimilarity {
			continue
		}
		candidates = append(candidates, s)
	}

	scores := make([]float32, len(candidates))
	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range candidates {
		grp.Go(func() error {
			scores[i] = query.CompareTo(s, g.pairer)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		g.metrics.RecordDetect(len(candidates), time.Since(start), err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		g.metrics.RecordDetect(len(candidates), time.Since(start), err)
		return nil, err
	}

	var out []Candidate
	for i, s := range candidates {
		if scores[i] >= minSimilarity {
			out = append(out, Candidate{ID: s.ID(), Similarity: scores[i]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})

	g.metrics.RecordDetect(len(candidates), time.Since(start), nil)
	g.logger.Debug("loop-closure detection", "signature", queryID, "scored", len(candidates), "hits", len(out))
	return out, nil
}

func payloadSize(bufs ...[]byte) int64 {
	var n int64
	for _, b := range bufs {
		n += int64(len(b))
	}
	return n
}
