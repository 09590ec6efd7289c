package cfile

import (
	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/sizecount"
	"github.com/discochess/cfile/internal/stats"
)

// DefaultBufferSize is the read buffer capacity used by the buffered
// backends unless WithBufferSize says otherwise.
const DefaultBufferSize = 4096

// Option configures an Arena and every File opened under it.
type Option interface {
	apply(*options)
}

// options holds the arena configuration.
type options struct {
	logger       *zap.Logger
	stats        stats.Collector
	bufferSize   int
	sniffing     bool
	gzipLevel    int
	bzip2Level   int
	sizeCounter  sizecount.Counter
	sizeCache    bool
	sizeMemoSize int
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		logger:     zap.NewNop(),
		stats:      stats.NewNoop(),
		bufferSize: DefaultBufferSize,
		gzipLevel:  -1, // gzip.DefaultCompression
		bzip2Level: 6,  // bzip2.DefaultCompression
		sizeCache:  true,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}

// WithBufferSize sets the capacity of the decoded read buffer for plain,
// gzip, xz, lzo, zstd and lz4 files. The bzip2 buffer is fixed.
func WithBufferSize(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	})
}

// WithSniffing makes read-mode opens pick the backend from the file's
// leading magic bytes, falling back to the name when none match.
func WithSniffing(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.sniffing = enabled
	})
}

// WithGzipLevel sets the gzip compression level used for writing. An
// out-of-range level makes Open fail.
func WithGzipLevel(level int) Option {
	return optionFunc(func(o *options) {
		o.gzipLevel = level
	})
}

// WithBzip2Level sets the bzip2 block size, 1 to 9, used for writing. An
// out-of-range level makes Open fail.
func WithBzip2Level(level int) Option {
	return optionFunc(func(o *options) {
		o.bzip2Level = level
	})
}

// WithSizeCounter sets how bzip2 sizes are computed on a cache miss.
// If not set, "bzip2 -dc" is used when installed and in-process decoding
// otherwise.
func WithSizeCounter(c sizecount.Counter) Option {
	return optionFunc(func(o *options) {
		o.sizeCounter = c
	})
}

// WithSizeCache enables or disables the extended-attribute size cache for
// bzip2 files. Enabled by default.
func WithSizeCache(enabled bool) Option {
	return optionFunc(func(o *options) {
		o.sizeCache = enabled
	})
}

// WithSizeMemo keeps up to n computed sizes in memory for the life of the
// arena, keyed by path, modification time and length. Zero disables it,
// which is the default.
func WithSizeMemo(n int) Option {
	return optionFunc(func(o *options) {
		o.sizeMemoSize = n
	})
}
