// Package streambackend implements a backend for any codec that decodes a
// plain byte stream, synthesizing byte and line reads with a buffer.
package streambackend

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/buffer"
	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Sizer reports the uncompressed size of the file at path without
// decoding it, or an error when the format does not allow that.
type Sizer func(path string) (int64, error)

// Backend decodes through a streaming buffer or encodes through a codec
// writer.
type Backend struct {
	name string
	path string
	file *os.File

	dec  io.ReadCloser
	buf  *buffer.Buffer
	done bool
	err  error

	enc     io.WriteCloser
	written int64

	sizer  Sizer
	logger *zap.Logger
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	bufferSize int
	sizer      Sizer
	logger     *zap.Logger
}

// WithBufferSize sets the decoded buffer capacity. Default:
// buffer.DefaultCapacity.
func WithBufferSize(n int) Option {
	return func(cfg *config) {
		cfg.bufferSize = n
	}
}

// WithSizer sets the size oracle. Without one Size reports 0.
func WithSizer(s Sizer) Option {
	return func(cfg *config) {
		cfg.sizer = s
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Open opens path through c. name is the backend name to report. Append
// mode is not supported.
func Open(name, path string, mode backend.Mode, c codec.Codec, opts ...Option) (*Backend, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if mode.Append() {
		return nil, fmt.Errorf("%w: %s cannot append", backend.ErrUnsupportedMode, name)
	}

	b := &Backend{name: name, path: path, sizer: cfg.sizer, logger: cfg.logger}
	if mode.Reading() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		dec, err := c.Reader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		b.file, b.dec = f, dec
		b.buf = buffer.New(cfg.bufferSize, b.refill)
		return b, nil
	}

	f, err := os.OpenFile(path, backend.OpenFlags(mode), 0o666)
	if err != nil {
		return nil, err
	}
	enc, err := c.Writer(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating %s writer: %w", c.Extension(), err)
	}
	b.file, b.enc = f, enc
	return b, nil
}

// Name returns the name given to Open.
func (b *Backend) Name() string { return b.name }

// Size returns the bytes written so far when writing, and the sizer's
// answer when reading. Sizer failures report 0.
func (b *Backend) Size() int64 {
	if b.enc != nil {
		return b.written
	}
	if b.sizer == nil {
		return 0
	}
	n, err := b.sizer(b.path)
	if err != nil {
		b.logger.Debug("size unavailable",
			zap.String("backend", b.name),
			zap.String("path", b.path),
			zap.Error(err),
		)
		return 0
	}
	return n
}

// refill decodes one buffer's worth into p. After the first error it keeps
// returning 0.
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

func (b *Backend) readErr() error {
	if b.err != nil {
		return b.err
	}
	return io.EOF
}

// EOF reports whether the buffer is drained and the decoder has nothing
// more.
func (b *Backend) EOF() bool {
	if b.buf == nil {
		return false
	}
	return b.buf.Empty()
}

// Gets reads one decoded line of at most len(dst) bytes.
func (b *Backend) Gets(dst []byte) (int, error) {
	if b.buf == nil {
		return 0, backend.ErrNotReadable
	}
	n := b.buf.FillLine(dst)
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
	if b.buf == nil {
		return 0, backend.ErrNotReadable
	}
	n := b.buf.FillBlock(p)
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

// Flush pushes pending output through codecs that can flush mid-stream and
// is a no-op for the rest.
func (b *Backend) Flush() error {
	if f, ok := b.enc.(codec.Flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close finishes the stream, if writing, and closes the file.
func (b *Backend) Close() error {
	if b.dec != nil {
		_ = b.dec.Close()
		return b.file.Close()
	}
	return errors.Join(b.enc.Close(), b.file.Close())
}
