// Package mapgraph provides the map-node layer of a visual mapping and
// loop-closure system: keyframe signatures with feature observations and
// pose-graph links, similarity-based loop-closure candidate search, and
// incremental archival of nodes leaving working memory.
//
// # Quick Start
//
//	g := mapgraph.New(mapgraph.WithMapID(1))
//
//	sig, _ := g.Create(ctx, words, mapgraph.Acquisition{
//	    Pose:        pose,
//	    Image:       imageBytes,
//	    Depth:       depthBytes,
//	    Calibration: signature.Calibration{FX: 525, FY: 525, CX: 319.5, CY: 239.5},
//	})
//
//	candidates, _ := g.DetectLoopClosures(ctx, sig.ID(), 0.2)
//	if len(candidates) > 0 {
//	    g.AddLink(sig.ID(), candidates[0].ID, t, mapgraph.LinkLoopClosure)
//	}
//
// # Archival
//
// With an archive store configured, dirty signatures can be persisted
// incrementally:
//
//	store, _ := archive.NewLocalStore("./data")
//	g := mapgraph.New(mapgraph.WithArchive(store))
//	...
//	g.Flush(ctx) // archives everything dirty, publishes a manifest
//
// Cloud backends live in archive/s3 and archive/minio.
//
// # Concurrency
//
// Graph serializes all mutation internally; Signature itself has no locking
// and must only be mutated through its owning graph's single-writer
// discipline.
package mapgraph
