package mapgraph

import (
	"log/slog"

	"github.com/hupe1980/mapgraph/archive"
	"github.com/hupe1980/mapgraph/codec"
	"github.com/hupe1980/mapgraph/pair"
	"github.com/hupe1980/mapgraph/resource"
)

type options struct {
	mapID       int
	pairer      pair.Pairer
	logger      *Logger
	metrics     MetricsCollector
	codec       codec.Codec
	compression codec.Compression
	store       archive.Store
	manifests   archive.ManifestStore
	resCfg      resource.Config
}

// Option configures Graph construction.
type Option func(*options)

// WithMapID sets the map/session id stamped on every created signature.
func WithMapID(id int) Option {
	return func(o *options) {
		o.mapID = id
	}
}

// WithPairer sets the feature pairer used for similarity scoring.
// If nil is passed, the default vocabulary-id pairer is used.
func WithPairer(p pair.Pairer) Option {
	return func(o *options) {
		if p == nil {
			p = pair.UniqueWords{}
		}
		o.pairer = p
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithCodec configures the codec for archived records.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression selects the payload compression for archived sensor
// buffers.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithArchive configures the blob store that receives archived signatures.
// Without it, Archive/Restore/Flush return ErrNoArchive.
func WithArchive(store archive.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithManifests configures a manifest store; Flush then publishes a
// checkpoint manifest after archiving.
func WithManifests(m archive.ManifestStore) Option {
	return func(o *options) {
		o.manifests = m
	}
}

// WithResourceConfig bounds archival concurrency, upload throughput and
// tracked payload memory.
func WithResourceConfig(cfg resource.Config) Option {
	return func(o *options) {
		o.resCfg = cfg
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		pairer:      pair.UniqueWords{},
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		codec:       codec.Default,
		compression: codec.CompressionZSTD,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
