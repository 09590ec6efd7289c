// Package gzipcodec provides a gzip compression codec.
package gzipcodec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements gzip compression.
type Codec struct {
	level int
}

// New returns a new gzip codec at the default compression level.
func New() *Codec {
	return &Codec{level: gzip.DefaultCompression}
}

// NewLevel returns a gzip codec writing at the given level
// (gzip.HuffmanOnly through gzip.BestCompression).
func NewLevel(level int) (*Codec, error) {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip: invalid compression level %d", level)
	}
	return &Codec{level: level}, nil
}

// Reader wraps r to decompress gzip data. Concatenated members are read as
// one stream.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Writer wraps w to compress data with gzip.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, c.level)
}

// Extension returns "gz".
func (c *Codec) Extension() string {
	return "gz"
}

// TrailerSize returns the ISIZE field stored in the last four bytes of a
// gzip file: the uncompressed length modulo 2^32 of the final member only.
// Files larger than 4 GiB or holding several members report a wrong value;
// callers accept this as an approximation.
func TrailerSize(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(-4, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("seeking to gzip trailer: %w", err)
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return 0, fmt.Errorf("reading gzip trailer: %w", err)
	}
	return int64(binary.LittleEndian.Uint32(trailer[:])), nil
}
