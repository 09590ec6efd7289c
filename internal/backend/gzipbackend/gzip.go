// Package gzipbackend implements the backend for gzip files.
package gzipbackend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/codec"
	"github.com/discochess/cfile/internal/codec/gzipcodec"
)

// Name is the backend name reported for gzip files.
const Name = "GZip file"

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend decodes or encodes one gzip file. Append mode adds a new member
// to the end of an existing file.
type Backend struct {
	path string
	file *os.File
	mode backend.Mode

	dec io.ReadCloser
	r   *bufio.Reader

	enc     io.WriteCloser
	written int64

	logger *zap.Logger
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	codec      *gzipcodec.Codec
	bufferSize int
	logger     *zap.Logger
}

// WithCodec sets the codec, and with it the compression level.
func WithCodec(c *gzipcodec.Codec) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithBufferSize sets the decoded read buffer size.
func WithBufferSize(n int) Option {
	return func(cfg *config) {
		cfg.bufferSize = n
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Open opens path for gzip decoding or encoding. A header the codec rejects
// is returned as the codec's own error.
func Open(path string, mode backend.Mode, opts ...Option) (*Backend, error) {
	cfg := config{
		codec:      gzipcodec.New(),
		bufferSize: 4096,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Backend{path: path, mode: mode, logger: cfg.logger}
	if mode.Reading() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec, err := cfg.codec.Reader(f)
		switch {
		case errors.Is(err, io.EOF):
			// An empty file is an empty stream.
			dec = io.NopCloser(eofReader{})
		case err != nil:
			f.Close()
			return nil, err
		}
		b.file, b.dec = f, dec
		b.r = bufio.NewReaderSize(dec, cfg.bufferSize)
		return b, nil
	}

	f, err := os.OpenFile(path, backend.OpenFlags(mode), 0o666)
	if err != nil {
		return nil, err
	}
	enc, err := cfg.codec.Writer(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	b.file, b.enc = f, enc
	return b, nil
}

// Name returns "GZip file".
func (b *Backend) Name() string { return Name }

// Size returns the ISIZE trailer of the file when reading, or the bytes
// written so far when writing. See gzipcodec.TrailerSize for the limits of
// the trailer.
func (b *Backend) Size() int64 {
	if b.enc != nil {
		return b.written
	}
	f, err := os.Open(b.path)
	if err != nil {
		b.logger.Debug("gzip size: reopen failed", zap.String("path", b.path), zap.Error(err))
		return 0
	}
	defer f.Close()
	n, err := gzipcodec.TrailerSize(f)
	if err != nil {
		b.logger.Debug("gzip size: trailer unreadable", zap.String("path", b.path), zap.Error(err))
		return 0
	}
	return n
}

// EOF reports whether no decoded byte remains.
func (b *Backend) EOF() bool {
	if b.r == nil {
		return false
	}
	return backend.AtEOF(b.r)
}

// Gets reads one decoded line of at most len(dst) bytes.
func (b *Backend) Gets(dst []byte) (int, error) {
	if b.r == nil {
		return 0, backend.ErrNotReadable
	}
	return backend.ReadLineInto(b.r, dst)
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
	if b.r == nil {
		return 0, backend.ErrNotReadable
	}
	return backend.ReadFull(b.r, p)
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

// Flush emits a sync point so everything written so far is decodable.
func (b *Backend) Flush() error {
	if f, ok := b.enc.(codec.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close finishes the member, if writing, and closes the file.
func (b *Backend) Close() error {
	var errs []error
	if b.enc != nil {
		errs = append(errs, b.enc.Close())
	}
	if b.dec != nil {
		// Decode errors were already reported by the reads.
		_ = b.dec.Close()
	}
	errs = append(errs, b.file.Close())
	return errors.Join(errs...)
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
