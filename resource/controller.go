// Package resource bounds the background cost of graph archival: worker
// concurrency, upload throughput and resident payload memory.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values disable the respective limit
// (except workers, which default to 1).
type Config struct {
	// MaxArchiveWorkers is the maximum number of concurrent archival jobs.
	MaxArchiveWorkers int64

	// UploadBytesPerSec caps archive upload throughput.
	UploadBytesPerSec int64

	// MemoryLimitBytes is the hard limit for tracked payload memory.
	// If 0, usage is tracked but not enforced.
	MemoryLimitBytes int64
}

// Controller enforces Config. A nil Controller disables all limits.
type Controller struct {
	workerSem *semaphore.Weighted

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	upLimiter *rate.Limiter
}

// NewController creates a controller from cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxArchiveWorkers <= 0 {
		cfg.MaxArchiveWorkers = 1
	}

	c := &Controller{
		workerSem: semaphore.NewWeighted(cfg.MaxArchiveWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.UploadBytesPerSec > 0 {
		c.upLimiter = rate.NewLimiter(rate.Limit(cfg.UploadBytesPerSec), int(cfg.UploadBytesPerSec))
	}
	return c
}

// AcquireWorker reserves an archival worker slot, blocking until one is free
// or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workerSem.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workerSem.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workerSem.Release(1)
}

// AcquireUpload waits until the upload limiter allows the given number of
// bytes.
func (c *Controller) AcquireUpload(ctx context.Context, bytes int) error {
	if c == nil || c.upLimiter == nil || bytes <= 0 {
		return nil
	}
	// WaitN cannot exceed the burst; split large payloads.
	burst := c.upLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.upLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// AcquireMemory reserves tracked payload memory, blocking when a hard limit
// is configured and exhausted.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory releases tracked payload memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the tracked payload memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}
