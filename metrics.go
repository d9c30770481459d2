package mapgraph

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordDetect is called after each loop-closure detection run.
	// candidates is the number of signatures scored after prescreening.
	RecordDetect(candidates int, duration time.Duration, err error)

	// RecordArchive is called after each signature archival.
	// bytes is the uploaded record size; err is nil if successful.
	RecordArchive(bytes int, duration time.Duration, err error)

	// RecordRestore is called after each signature restore.
	RecordRestore(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordDetect(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordArchive(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRestore(time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	DetectCount       atomic.Int64
	DetectErrors      atomic.Int64
	DetectCandidates  atomic.Int64
	DetectTotalNanos  atomic.Int64
	ArchiveCount      atomic.Int64
	ArchiveErrors     atomic.Int64
	ArchiveBytes      atomic.Int64
	ArchiveTotalNanos atomic.Int64
	RestoreCount      atomic.Int64
	RestoreErrors     atomic.Int64
}

// RecordDetect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDetect(candidates int, duration time.Duration, err error) {
	b.DetectCount.Add(1)
	b.DetectCandidates.Add(int64(candidates))
	b.DetectTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DetectErrors.Add(1)
	}
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(bytes int, duration time.Duration, err error) {
	b.ArchiveCount.Add(1)
	b.ArchiveBytes.Add(int64(bytes))
	b.ArchiveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ArchiveErrors.Add(1)
	}
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(duration time.Duration, err error) {
	b.RestoreCount.Add(1)
	if err != nil {
		b.RestoreErrors.Add(1)
	}
}
