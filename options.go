package bunchfile

import (
	"log/slog"

	"github.com/hupe1980/bunchfile/codec"
	"github.com/hupe1980/bunchfile/internal/fs"
)

const (
	// DefaultBunchSize is the number of records per block when none is configured.
	DefaultBunchSize = 128

	// DefaultCompressionLevel is the zlib level used when none is configured.
	DefaultCompressionLevel = codec.DefaultZlibLevel
)

type options struct {
	bunchSize        int
	compressionLevel int
	codec            codec.Codec
	fs               fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open behavior.
type Option func(*options)

// WithBunchSize sets the maximum number of records per block.
//
// The bunch size is not persisted. An existing file must be reopened with
// the bunch size it was written with, otherwise Open fails with a
// *BunchSizeMismatchError.
func WithBunchSize(n int) Option {
	return func(o *options) {
		o.bunchSize = n
	}
}

// WithCompressionLevel sets the zlib compression level (-2..9).
// Ignored when WithCodec is used.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		o.compressionLevel = level
	}
}

// WithCodec configures the codec used for block payloads.
//
// If nil is passed, a zlib codec at the configured compression level is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bunchfile.BasicMetricsCollector{}
//	s, _ := bunchfile.Open[Header, Item]("items.bin", bunchfile.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Flushes: %d, ratio: %.2f\n", stats.FlushCount, stats.CompressionRatio())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bunchfile.NewJSONLogger(slog.LevelInfo)
//	s, _ := bunchfile.Open[Header, Item]("items.bin", bunchfile.WithLogger(logger))
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

// withFileSystem replaces the file system; used by tests for fault injection.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		bunchSize:        DefaultBunchSize,
		compressionLevel: DefaultCompressionLevel,
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.fs == nil {
		o.fs = fs.Default
	}
	return o
}
