// Package archive abstracts the storage backends that hold archived
// signature records when the owning graph moves nodes out of working memory.
//
// Built-in implementations:
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with mmap reads
//   - s3.Store: Amazon S3 with range reads and streaming uploads
//   - minio.Store: MinIO and other S3-compatible services
package archive

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error satisfying
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store reads and writes named blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader over [off, off+length).
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
	// Size returns the blob size in bytes.
	Size() int64
	Close() error
}

// WritableBlob is a streaming write handle. The blob becomes visible on
// Close.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes buffered data where the backend supports it.
	Sync() error
}

// ReadAll reads an entire blob.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	data := make([]byte, b.Size())
	if len(data) == 0 {
		return data, nil
	}
	if _, err := b.ReadAt(ctx, data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}
