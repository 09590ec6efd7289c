// Package plainbackend implements the backend for uncompressed files and
// standard streams.
package plainbackend

import (
	"bufio"
	"fmt"
	"os"

	"github.com/discochess/cfile/internal/backend"
)

// Name is the backend name reported for uncompressed files.
const Name = "Normal file"

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend reads or writes an uncompressed file through bufio.
type Backend struct {
	file *os.File
	mode backend.Mode
	r    *bufio.Reader
	w    *bufio.Writer
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	bufferSize int
}

// WithBufferSize sets the bufio buffer size. Non-positive values keep the
// bufio default.
func WithBufferSize(n int) Option {
	return func(c *config) {
		c.bufferSize = n
	}
}

// Open opens path in the given mode. Open errors are returned unwrapped so
// callers can inspect the *fs.PathError.
func Open(path string, mode backend.Mode, opts ...Option) (*Backend, error) {
	var f *os.File
	var err error
	if mode.Reading() {
		f, err = os.Open(path)
	} else {
		f, err = os.OpenFile(path, backend.OpenFlags(mode), 0o666)
	}
	if err != nil {
		return nil, err
	}
	return FromFile(f, mode, opts...), nil
}

// FromFile wraps an already open file. Close closes f unless it is one of
// the process standard streams.
func FromFile(f *os.File, mode backend.Mode, opts ...Option) *Backend {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	size := cfg.bufferSize
	if size <= 0 {
		size = 4096
	}

	b := &Backend{file: f, mode: mode}
	if mode.Reading() {
		b.r = bufio.NewReaderSize(f, size)
	} else {
		b.w = bufio.NewWriterSize(f, size)
	}
	return b
}

// Name returns "Normal file".
func (b *Backend) Name() string { return Name }

// Size returns the file length from fstat, after pushing out any buffered
// output. Pipes and terminals report 0.
func (b *Backend) Size() int64 {
	if b.w != nil {
		_ = b.w.Flush()
	}
	info, err := b.file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// EOF reports whether no byte remains to be read.
func (b *Backend) EOF() bool {
	if b.r == nil {
		return false
	}
	return backend.AtEOF(b.r)
}

// Gets reads one line of at most len(dst) bytes.
func (b *Backend) Gets(dst []byte) (int, error) {
	if b.r == nil {
		return 0, backend.ErrNotReadable
	}
	return backend.ReadLineInto(b.r, dst)
}

// Printf formats into the write buffer.
func (b *Backend) Printf(format string, args ...any) (int, error) {
	if b.w == nil {
		return 0, backend.ErrNotWritable
	}
	return fmt.Fprintf(b.w, format, args...)
}

// Read fills p from the file.
func (b *Backend) Read(p []byte) (int, error) {
	if b.r == nil {
		return 0, backend.ErrNotReadable
	}
	return backend.ReadFull(b.r, p)
}

// Write buffers p for the file.
func (b *Backend) Write(p []byte) (int, error) {
	if b.w == nil {
		return 0, backend.ErrNotWritable
	}
	return b.w.Write(p)
}

// Flush writes buffered output to the file.
func (b *Backend) Flush() error {
	if b.w == nil {
		return nil
	}
	return b.w.Flush()
}

// Close flushes and closes the file. Standard streams are flushed but left
// open.
func (b *Backend) Close() error {
	var flushErr error
	if b.w != nil {
		flushErr = b.w.Flush()
	}
	if backend.IsStdio(b.file) {
		return flushErr
	}
	if err := b.file.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}
