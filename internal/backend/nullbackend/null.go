// Package nullbackend implements a sink that discards writes and reads
// nothing.
package nullbackend

import (
	"fmt"
	"io"

	"github.com/discochess/cfile/internal/backend"
)

// Name is the backend name reported for the null sink.
const Name = "Null file"

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend discards everything. It holds no resources.
type Backend struct{}

// New returns a null sink. The mode is accepted for symmetry with the
// other backends; reads and writes behave the same in every mode.
func New(backend.Mode) *Backend {
	return &Backend{}
}

// Name returns "Null file".
func (*Backend) Name() string { return Name }

// Size is always 0.
func (*Backend) Size() int64 { return 0 }

// EOF is always true.
func (*Backend) EOF() bool { return true }

// Gets never produces a line.
func (*Backend) Gets([]byte) (int, error) { return 0, io.EOF }

// Printf formats and discards, reporting the formatted length.
func (*Backend) Printf(format string, args ...any) (int, error) {
	return fmt.Fprintf(io.Discard, format, args...)
}

// Read never produces data.
func (*Backend) Read([]byte) (int, error) { return 0, io.EOF }

// Write discards p and reports it fully written.
func (*Backend) Write(p []byte) (int, error) { return len(p), nil }

// Flush has nothing to push.
func (*Backend) Flush() error { return nil }

// Close releases nothing.
func (*Backend) Close() error { return nil }
