package mapgraph

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mapgraph/archive"
	"github.com/hupe1980/mapgraph/codec"
	"github.com/hupe1980/mapgraph/signature"
)

// envelope wraps an archived record. The codec name is recorded so a reader
// with a different configuration fails loudly instead of misdecoding.
type envelope struct {
	Codec       string            `json:"codec"`
	Compression codec.Compression `json:"compression"`
	Record      signature.Record  `json:"record"`
}

// Manifest is the checkpoint document Flush publishes after archiving.
type Manifest struct {
	Session   string `json:"session"`
	MapID     int    `json:"map_id"`
	IDs       []int  `json:"ids"`
	CreatedAt int64  `json:"created_at_unix"`
}

func (g *Graph) blobName(id int) string {
	return fmt.Sprintf("%s/signatures/%010d.rec", g.session, id)
}

// Archive persists one signature to the archive store. Signatures that are
// already saved and clean are skipped, which is what makes the dirty
// tracking pay off for incremental persistence.
func (g *Graph) Archive(ctx context.Context, id int) error {
	start := time.Now()

	n, err := g.archive(ctx, id)
	g.metrics.RecordArchive(n, time.Since(start), err)
	return err
}

func (g *Graph) archive(ctx context.Context, id int) (int, error) {
	if g.store == nil {
		return 0, ErrNoArchive
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.signatures[id]
	if !ok {
		return 0, ErrNotFound
	}
	if s.Saved() && s.State() == signature.StateClean {
		return 0, nil
	}

	data, err := g.encode(s)
	if err != nil {
		return 0, err
	}
	if err := g.res.AcquireUpload(ctx, len(data)); err != nil {
		return 0, err
	}
	if err := g.store.Put(ctx, g.blobName(id), data); err != nil {
		return 0, fmt.Errorf("archive signature %d: %w", id, err)
	}

	s.SetSaved(true)
	s.MarkClean()

	g.logger.Debug("signature archived", "signature", id, "bytes", len(data))
	return len(data), nil
}

func (g *Graph) encode(s *signature.Signature) ([]byte, error) {
	rec := s.Snapshot()

	var err error
	if rec.Image, err = codec.Compress(rec.Image, g.compression); err != nil {
		return nil, err
	}
	if rec.Depth, err = codec.Compress(rec.Depth, g.compression); err != nil {
		return nil, err
	}
	if rec.Depth2D, err = codec.Compress(rec.Depth2D, g.compression); err != nil {
		return nil, err
	}

	return g.codec.Marshal(envelope{
		Codec:       g.codec.Name(),
		Compression: g.compression,
		Record:      rec,
	})
}

// Restore loads an archived signature back into the graph.
func (g *Graph) Restore(ctx context.Context, id int) (*signature.Signature, error) {
	start := time.Now()

	s, err := g.restore(ctx, id)
	g.metrics.RecordRestore(time.Since(start), err)
	return s, err
}

func (g *Graph) restore(ctx context.Context, id int) (*signature.Signature, error) {
	if g.store == nil {
		return nil, ErrNoArchive
	}

	name := g.blobName(id)
	data, err := archive.ReadAll(ctx, g.store, name)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := g.codec.Unmarshal(data, &env); err != nil {
		return nil, &ErrBadRecord{Name: name, cause: err}
	}
	if env.Codec != g.codec.Name() {
		return nil, &ErrBadRecord{Name: name, cause: fmt.Errorf("codec mismatch: stored %q, configured %q", env.Codec, g.codec.Name())}
	}

	rec := env.Record
	if rec.Image, err = codec.Decompress(rec.Image, env.Compression); err != nil {
		return nil, &ErrBadRecord{Name: name, cause: err}
	}
	if rec.Depth, err = codec.Decompress(rec.Depth, env.Compression); err != nil {
		return nil, &ErrBadRecord{Name: name, cause: err}
	}
	if rec.Depth2D, err = codec.Decompress(rec.Depth2D, env.Compression); err != nil {
		return nil, &ErrBadRecord{Name: name, cause: err}
	}

	if err := g.res.AcquireMemory(ctx, payloadSize(rec.Image, rec.Depth, rec.Depth2D)); err != nil {
		return nil, err
	}

	s := signature.FromRecord(rec)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.addLocked(s); err != nil {
		g.res.ReleaseMemory(payloadSize(rec.Image, rec.Depth, rec.Depth2D))
		return nil, err
	}

	g.logger.Debug("signature restored", "signature", s.ID())
	return s, nil
}

// Flush archives every dirty or unsaved signature, bounded by the resource
// controller's worker limit, then publishes a checkpoint manifest when a
// manifest store is configured.
func (g *Graph) Flush(ctx context.Context) error {
	if g.store == nil {
		return ErrNoArchive
	}

	g.mu.RLock()
	var dirty []int
	for id, s := range g.signatures {
		if !s.Saved() || s.State() != signature.StateClean {
			dirty = append(dirty, id)
		}
	}
	g.mu.RUnlock()

	grp, gctx := errgroup.WithContext(ctx)
	for _, id := range dirty {
		grp.Go(func() error {
			if err := g.res.AcquireWorker(gctx); err != nil {
				return err
			}
			defer g.res.ReleaseWorker()
			return g.Archive(gctx, id)
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	if g.manifests == nil {
		return nil
	}

	manifest := Manifest{
		Session:   g.session.String(),
		MapID:     g.mapID,
		IDs:       g.IDs(),
		CreatedAt: time.Now().Unix(),
	}
	data, err := g.codec.Marshal(manifest)
	if err != nil {
		return err
	}
	version, err := g.manifests.Commit(ctx, data)
	if err != nil {
		return err
	}

	g.logger.Info("checkpoint published", "version", version, "signatures", len(manifest.IDs), "archived", len(dirty))
	return nil
}
