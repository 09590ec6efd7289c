// Package backend defines the operation table every file backend implements.
package backend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMode indicates an open mode string that cannot be parsed.
	ErrInvalidMode = errors.New("backend: invalid mode")

	// ErrUnsupportedMode indicates a valid mode the backend does not offer,
	// such as append on a codec that cannot extend an existing stream.
	ErrUnsupportedMode = errors.New("backend: unsupported mode")

	// ErrNotReadable is returned by read operations on a write-mode handle.
	ErrNotReadable = errors.New("backend: handle not open for reading")

	// ErrNotWritable is returned by write operations on a read-mode handle.
	ErrNotWritable = errors.New("backend: handle not open for writing")
)

// Backend is the set of operations a codec-specific implementation provides.
// The dispatch core never branches on backend identity, so every backend
// implements every method, even where the operation is a no-op.
type Backend interface {
	// Name returns the human-readable backend name, e.g. "GZip file".
	Name() string

	// Size returns the uncompressed size of the file in bytes, or 0 if
	// it cannot be determined. Failures are never fatal.
	Size() int64

	// EOF reports whether an attempt to read one more byte would yield nothing.
	EOF() bool

	// Gets reads at most len(dst) bytes, stopping after a newline.
	// It returns io.EOF when no bytes were available at all.
	Gets(dst []byte) (int, error)

	// Printf writes formatted text and returns the number of bytes produced.
	Printf(format string, args ...any) (int, error)

	// Read fills p unless the stream ends first; a short count is not an
	// error by itself. At end of stream the error is io.EOF.
	Read(p []byte) (int, error)

	// Write writes p and returns the number of bytes accepted.
	Write(p []byte) (int, error)

	// Flush pushes buffered output to the underlying file. It is a no-op
	// on read-mode handles.
	Flush() error

	// Close flushes pending output and releases the native resource.
	Close() error
}

// Mode is a parsed fopen-style mode string.
type Mode struct {
	raw    string
	write  bool
	append bool
}

// ParseMode parses modes such as "r", "rb", "w", "wb", "a" and "ab".
// Update modes ("r+", "w+") are rejected: a handle either reads or writes.
func ParseMode(mode string) (Mode, error) {
	if mode == "" {
		return Mode{}, fmt.Errorf("%w: empty", ErrInvalidMode)
	}
	if strings.Contains(mode, "+") {
		return Mode{}, fmt.Errorf("%w: %q requests simultaneous read and write", ErrInvalidMode, mode)
	}
	for _, c := range mode[1:] {
		switch c {
		case 'b', 't', 'e', 'x':
		default:
			return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
		}
	}

	switch mode[0] {
	case 'r':
		return Mode{raw: mode}, nil
	case 'w':
		return Mode{raw: mode, write: true}, nil
	case 'a':
		return Mode{raw: mode, write: true, append: true}, nil
	default:
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// MustParseMode is ParseMode for constant mode strings.
func MustParseMode(mode string) Mode {
	m, err := ParseMode(mode)
	if err != nil {
		panic(err)
	}
	return m
}

// Reading reports whether the handle decodes an existing file.
func (m Mode) Reading() bool { return !m.write }

// Writing reports whether the handle produces output.
func (m Mode) Writing() bool { return m.write }

// Append reports whether output is added to the end of an existing file.
func (m Mode) Append() bool { return m.append }

// String returns the original mode string.
func (m Mode) String() string { return m.raw }
