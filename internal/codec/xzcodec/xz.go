// Package xzcodec provides an xz compression codec.
package xzcodec

import (
	"io"

	"github.com/ulikunitz/xz"

	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec implements xz compression.
type Codec struct{}

// New returns a new xz codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress xz data, including concatenated streams and
// stream padding.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// Writer wraps w to compress data with xz using CRC64 block checks.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return xz.WriterConfig{CheckSum: xz.CRC64}.NewWriter(w)
}

// Extension returns "xz".
func (c *Codec) Extension() string {
	return "xz"
}
