// Package cfile reads and writes files that may be plain or compressed
// with gzip, bzip2, xz, lzo, zstd or lz4 through one handle type. The
// codec is chosen from the file name, or optionally from the file's
// leading bytes, when the file is opened.
//
// Example usage:
//
//	f, err := cfile.Open("access.log.bz2", "r")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	var line []byte
//	for {
//	    var ok bool
//	    if line, ok = f.ReadLine(line); !ok {
//	        break
//	    }
//	    fmt.Print(string(line))
//	}
//
// A File is not safe for concurrent use. An Arena may be shared between
// goroutines.
package cfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/sizememo"
	"github.com/discochess/cfile/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrInvalidArgument indicates a nil handle, a bad mode string, an
	// empty name or an item size and count that do not fit the buffer.
	ErrInvalidArgument = errors.New("cfile: invalid argument")

	// ErrClosed indicates the handle has already been closed.
	ErrClosed = errors.New("cfile: file already closed")

	// ErrArenaClosed indicates an open under an arena that has been closed.
	ErrArenaClosed = errors.New("cfile: arena closed")

	// ErrInvalidMode indicates a mode string that cannot be parsed,
	// including update modes such as "r+".
	ErrInvalidMode = backend.ErrInvalidMode

	// ErrUnsupportedMode indicates a mode the selected backend does not
	// offer, such as appending to an xz file.
	ErrUnsupportedMode = backend.ErrUnsupportedMode

	// ErrNotReadable is returned by reads on a handle opened for writing.
	ErrNotReadable = backend.ErrNotReadable

	// ErrNotWritable is returned by writes on a handle opened for reading.
	ErrNotWritable = backend.ErrNotWritable
)

// File is an open logical file. Every operation is forwarded to the
// backend chosen at open time.
type File struct {
	name    string
	path    string
	mode    backend.Mode
	backend backend.Backend
	arena   *Arena

	closed bool
	err    error

	logger *zap.Logger
	stats  stats.Collector
}

// Compile-time check that File implements io.ReadWriteCloser.
var _ io.ReadWriteCloser = (*File)(nil)

// check reports whether f can be used.
func (f *File) check() error {
	if f == nil || f.backend == nil {
		return ErrInvalidArgument
	}
	if f.closed {
		return ErrClosed
	}
	return nil
}

// Name returns the name the file was opened with.
func (f *File) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// BackendName returns the name of the backend serving the file, such as
// "GZip file".
func (f *File) BackendName() string {
	if f == nil || f.backend == nil {
		return ""
	}
	return f.backend.Name()
}

// Err returns the first decode error met while reading, if any. Line and
// block reads treat such an error as the end of the data; Err tells a
// clean end from a corrupt one.
func (f *File) Err() error {
	if f == nil {
		return ErrInvalidArgument
	}
	return f.err
}

// noteErr records a read error that ends the data.
func (f *File) noteErr(err error) {
	if err == nil || errors.Is(err, io.EOF) || f.err != nil {
		return
	}
	f.err = err
	f.stats.IncCounter(stats.MetricDecodeErrors, 1)
	f.logger.Debug("read ended by error", zap.String("name", f.name), zap.Error(err))
}

// Size returns the uncompressed size of the file in bytes, or 0 when it
// cannot be determined. While writing it is the number of bytes written so
// far. Depending on the backend this may read the whole file.
func (f *File) Size() int64 {
	if f.check() != nil {
		return 0
	}
	start := time.Now()
	defer func() {
		f.stats.ObserveHistogram(stats.MetricSizeSeconds, time.Since(start).Seconds())
	}()

	memo := f.arena.memo
	if memo == nil || f.path == "" || !f.mode.Reading() {
		return f.backend.Size()
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return f.backend.Size()
	}
	key := sizememo.KeyFor(f.path, info)
	if n, ok := memo.Get(key); ok {
		return n
	}
	n := f.backend.Size()
	if n > 0 {
		memo.Set(key, n)
	}
	return n
}

// EOF reports whether an attempt to read one more byte would yield
// nothing. It becomes true right after the read that consumed the last
// byte. Handles opened for writing report false; the null sink reports
// true.
func (f *File) EOF() bool {
	if f.check() != nil {
		return true
	}
	return f.backend.EOF()
}

// Gets reads one line into buf, stopping after a newline or when buf is
// full, and returns the filled prefix of buf. It returns false when no
// byte could be read.
func (f *File) Gets(buf []byte) ([]byte, bool) {
	if f.check() != nil || len(buf) == 0 {
		return nil, false
	}
	n, err := f.backend.Gets(buf)
	f.stats.IncCounter(stats.MetricBytesRead, int64(n))
	if n == 0 {
		f.noteErr(err)
		return nil, false
	}
	return buf[:n], true
}

// Printf writes formatted text and returns the number of bytes produced.
func (f *File) Printf(format string, args ...any) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	n, err := f.backend.Printf(format, args...)
	f.stats.IncCounter(stats.MetricBytesWritten, int64(n))
	return n, err
}

// ReadBlock reads up to count items of size bytes each into p and returns
// the number of whole items read. A short count means the data ended; Err
// tells whether it ended cleanly.
func (f *File) ReadBlock(p []byte, size, count int) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	total, err := blockLen(len(p), size, count)
	if err != nil || total == 0 {
		return 0, err
	}
	n, err := f.backend.Read(p[:total])
	f.stats.IncCounter(stats.MetricBytesRead, int64(n))
	if errors.Is(err, ErrNotReadable) {
		return 0, err
	}
	f.noteErr(err)
	return n / size, nil
}

// WriteBlock writes count items of size bytes each from p and returns the
// number of whole items written. A short count comes with the write error.
func (f *File) WriteBlock(p []byte, size, count int) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	total, err := blockLen(len(p), size, count)
	if err != nil || total == 0 {
		return 0, err
	}
	n, err := f.backend.Write(p[:total])
	f.stats.IncCounter(stats.MetricBytesWritten, int64(n))
	return n / size, err
}

// blockLen returns size*count, rejecting negative values, overflow and
// products larger than the buffer.
func blockLen(buflen, size, count int) (int, error) {
	if size < 0 || count < 0 {
		return 0, fmt.Errorf("%w: negative item size or count", ErrInvalidArgument)
	}
	if size == 0 || count == 0 {
		return 0, nil
	}
	if count > buflen/size {
		return 0, fmt.Errorf("%w: %d items of %d bytes exceed a %d byte buffer",
			ErrInvalidArgument, count, size, buflen)
	}
	return size * count, nil
}

// Read implements io.Reader. Unlike ReadBlock it returns a decode error
// directly.
func (f *File) Read(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.backend.Read(p)
	f.stats.IncCounter(stats.MetricBytesRead, int64(n))
	if n > 0 && errors.Is(err, io.EOF) {
		// Report the end on the next call.
		err = nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		f.noteErr(err)
	}
	return n, err
}

// Write implements io.Writer.
func (f *File) Write(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	n, err := f.backend.Write(p)
	f.stats.IncCounter(stats.MetricBytesWritten, int64(n))
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// Flush pushes buffered output to the underlying file. It is a no-op for
// handles opened for reading.
func (f *File) Flush() error {
	if err := f.check(); err != nil {
		return err
	}
	return f.backend.Flush()
}

// Close flushes pending output and releases the file. The handle is
// released even when flushing fails. Closing twice returns ErrClosed.
func (f *File) Close() error {
	if err := f.check(); err != nil {
		return err
	}
	f.closed = true
	f.arena.forget(f)

	err := f.backend.Close()
	if err != nil {
		f.logger.Debug("close failed", zap.String("name", f.name), zap.Error(err))
		return fmt.Errorf("closing %s: %w", f.name, err)
	}
	f.logger.Debug("closed", zap.String("name", f.name))
	return nil
}
