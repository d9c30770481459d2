package archive

import (
	"context"
	"errors"
	"sync"
)

// ErrConcurrentCommit is returned when another writer published a manifest
// version concurrently.
var ErrConcurrentCommit = errors.New("archive: concurrent manifest commit")

// ManifestStore publishes versioned graph checkpoint manifests. Versions are
// monotonically increasing; Commit fails with ErrConcurrentCommit when the
// next version was taken by another writer.
type ManifestStore interface {
	// Commit publishes manifest as the next version and returns it.
	Commit(ctx context.Context, manifest []byte) (int64, error)
	// Latest returns the newest manifest and its version, or ErrNotFound
	// when nothing was committed yet.
	Latest(ctx context.Context) ([]byte, int64, error)
}

// MemoryManifest is an in-memory ManifestStore for tests and single-process
// use.
type MemoryManifest struct {
	mu       sync.Mutex
	versions [][]byte
}

// NewMemoryManifest creates an empty in-memory manifest store.
func NewMemoryManifest() *MemoryManifest {
	return &MemoryManifest{}
}

// Commit implements ManifestStore.
func (m *MemoryManifest) Commit(_ context.Context, manifest []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(manifest))
	copy(cp, manifest)
	m.versions = append(m.versions, cp)
	return int64(len(m.versions)), nil
}

// Latest implements ManifestStore.
func (m *MemoryManifest) Latest(_ context.Context) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.versions) == 0 {
		return nil, 0, ErrNotFound
	}
	last := m.versions[len(m.versions)-1]
	cp := make([]byte, len(last))
	copy(cp, last)
	return cp, int64(len(m.versions)), nil
}
