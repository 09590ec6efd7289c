// Package bzip2codec provides a bzip2 compression codec.
package bzip2codec

import (
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"

	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements bzip2 compression.
type Codec struct {
	level int
}

// New returns a new bzip2 codec at the default block size.
func New() *Codec {
	return &Codec{level: bzip2.DefaultCompression}
}

// NewLevel returns a bzip2 codec using blocks of level*100k bytes.
func NewLevel(level int) (*Codec, error) {
	if level < bzip2.BestSpeed || level > bzip2.BestCompression {
		return nil, fmt.Errorf("bzip2: invalid compression level %d", level)
	}
	return &Codec{level: level}, nil
}

// Reader wraps r to decompress bzip2 data. Concatenated streams are read as
// one.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	return c.NewReader(r)
}

// Writer wraps w to compress data with bzip2.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return c.NewWriter(w)
}

// NewReader is Reader with the concrete type, whose offsets report how much
// was consumed and produced.
func (c *Codec) NewReader(r io.Reader) (*bzip2.Reader, error) {
	return bzip2.NewReader(r, nil)
}

// NewWriter is Writer with the concrete type. After Close, InputOffset is
// the number of uncompressed bytes written.
func (c *Codec) NewWriter(w io.Writer) (*bzip2.Writer, error) {
	return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: c.level})
}

// Extension returns "bz2".
func (c *Codec) Extension() string {
	return "bz2"
}
