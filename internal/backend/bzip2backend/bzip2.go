// Package bzip2backend implements the backend for bzip2 files.
//
// bzip2 records no uncompressed size, so Size decompresses the whole file
// the first time and remembers the answer in an extended attribute on the
// file. Writing a file stores the attribute on Close for free, since the
// encoder knows how many bytes it consumed.
package bzip2backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/buffer"
	"github.com/discochess/cfile/internal/codec/bzip2codec"
	"github.com/discochess/cfile/internal/sizecache"
	"github.com/discochess/cfile/internal/sizecount"
	"github.com/discochess/cfile/internal/stats"
)

// Name is the backend name reported for bzip2 files.
const Name = "BZip2 file"

// BufferSize is the capacity of the decoded read buffer.
const BufferSize = 1024

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend decodes or encodes one bzip2 file.
type Backend struct {
	path string
	file *os.File

	dec  *bzip2.Reader
	buf  *buffer.Buffer
	done bool
	err  error

	enc     *bzip2.Writer
	written int64

	cfg config
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	codec     *bzip2codec.Codec
	cache     *sizecache.Cache
	counter   sizecount.Counter
	logger    *zap.Logger
	collector stats.Collector
}

// WithCodec sets the codec, and with it the block size used for writing.
func WithCodec(c *bzip2codec.Codec) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithSizeCache sets the persistent size cache. Nil disables it.
func WithSizeCache(c *sizecache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithCounter sets how the size is computed on a cache miss. Default:
// sizecount.Default.
func WithCounter(c sizecount.Counter) Option {
	return func(cfg *config) {
		cfg.counter = c
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithStats sets the collector for size cache hits and misses.
func WithStats(c stats.Collector) Option {
	return func(cfg *config) {
		cfg.collector = c
	}
}

// Open opens path for bzip2 decoding or encoding. Append mode is not
// supported.
func Open(path string, mode backend.Mode, opts ...Option) (*Backend, error) {
	cfg := config{
		codec:     bzip2codec.New(),
		logger:    zap.NewNop(),
		collector: stats.NewNoop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if mode.Append() {
		return nil, fmt.Errorf("%w: bzip2 cannot append", backend.ErrUnsupportedMode)
	}

	b := &Backend{path: path, cfg: cfg}
	if mode.Reading() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec, err := cfg.codec.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		b.file, b.dec = f, dec
		return b, nil
	}

	f, err := os.OpenFile(path, backend.OpenFlags(mode), 0o666)
	if err != nil {
		return nil, err
	}
	enc, err := cfg.codec.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}
	b.file, b.enc = f, enc
	return b, nil
}

// Name returns "BZip2 file".
func (b *Backend) Name() string { return Name }

// Size returns the uncompressed size. When writing it is the number of
// bytes written so far. When reading it comes from the size cache if the
// cached record is still fresh, and otherwise from a full count that is
// then cached.
func (b *Backend) Size() int64 {
	if b.enc != nil {
		return b.written
	}

	log := b.cfg.logger.With(zap.String("path", b.path))
	if b.cfg.cache != nil {
		if n, ok := b.cfg.cache.Lookup(b.path); ok {
			b.cfg.collector.IncCounter(stats.MetricSizeCacheHits, 1)
			log.Debug("bzip2 size from cache", zap.Int64("size", n))
			return n
		}
		b.cfg.collector.IncCounter(stats.MetricSizeCacheMisses, 1)
	}

	counter := b.cfg.counter
	if counter == nil {
		counter = sizecount.Default(b.cfg.logger, b.cfg.codec)
	}
	n, err := counter.Count(context.Background(), b.path)
	if err != nil {
		log.Debug("bzip2 size count failed", zap.Error(err))
		return 0
	}
	b.store(n)
	return n
}

// store records n in the size cache; failures are only logged.
func (b *Backend) store(n int64) {
	if b.cfg.cache == nil {
		return
	}
	if err := b.cfg.cache.Store(b.path, n); err != nil {
		b.cfg.logger.Debug("bzip2 size not cached", zap.String("path", b.path), zap.Error(err))
	}
}

// readBuf returns the read buffer, allocating it on first use.
func (b *Backend) readBuf() *buffer.Buffer {
	if b.buf == nil {
		b.buf = buffer.New(BufferSize, b.refill)
	}
	return b.buf
}

// refill decodes into p. The first error ends the stream; anything other
// than the normal end of data is kept for readErr.
func (b *Backend) refill(p []byte) int {
	if b.done {
		return 0
	}
	n, err := backend.ReadFull(b.dec, p)
	if err != nil {
		b.done = true
		if !errors.Is(err, io.EOF) {
			b.err = err
		}
	}
	return n
}

// readErr is the error to report once the buffer runs dry.
func (b *Backend) readErr() error {
	if b.err != nil {
		return b.err
	}
	return io.EOF
}

// EOF reports whether the last attempt to obtain a byte came up empty.
func (b *Backend) EOF() bool {
	if b.dec == nil {
		return false
	}
	return b.readBuf().Empty()
}

// Gets reads one decoded line of at most len(dst) bytes.
func (b *Backend) Gets(dst []byte) (int, error) {
	if b.dec == nil {
		return 0, backend.ErrNotReadable
	}
	n := b.readBuf().FillLine(dst)
	if n == 0 && len(dst) > 0 {
		return 0, b.readErr()
	}
	return n, nil
}

// Printf formats straight into the compressor.
func (b *Backend) Printf(format string, args ...any) (int, error) {
	if b.enc == nil {
		return 0, backend.ErrNotWritable
	}
	n, err := fmt.Fprintf(b.enc, format, args...)
	b.written += int64(n)
	return n, err
}

// Read fills p with decoded bytes.
func (b *Backend) Read(p []byte) (int, error) {
	if b.dec == nil {
		return 0, backend.ErrNotReadable
	}
	n := b.readBuf().FillBlock(p)
	if n < len(p) {
		return n, b.readErr()
	}
	return n, nil
}

// Write compresses p.
func (b *Backend) Write(p []byte) (int, error) {
	if b.enc == nil {
		return 0, backend.ErrNotWritable
	}
	n, err := b.enc.Write(p)
	b.written += int64(n)
	return n, err
}

// Flush is a no-op: a bzip2 block cannot be closed early without ending
// the stream.
func (b *Backend) Flush() error { return nil }

// Close finishes the stream, if writing, closes the file and then caches
// the number of bytes the encoder consumed.
func (b *Backend) Close() error {
	if b.dec != nil {
		_ = b.dec.Close()
		return b.file.Close()
	}

	encErr := b.enc.Close()
	fileErr := b.file.Close()
	if err := errors.Join(encErr, fileErr); err != nil {
		return err
	}
	b.store(b.enc.InputOffset)
	return nil
}
