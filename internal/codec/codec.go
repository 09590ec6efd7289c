// Package codec provides the compression formats a file handle can be backed by.
package codec

import "io"

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "xz", "gz").
	// Returns empty string for no compression.
	Extension() string
}

// Flusher is implemented by compressing writers that can emit everything
// written so far without ending the stream.
type Flusher interface {
	Flush() error
}
