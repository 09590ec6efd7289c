// Package zstdcodec provides a zstd compression codec.
package zstdcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// ErrUnknownSize is returned by ContentSize when a frame does not declare
// its decompressed size.
var ErrUnknownSize = errors.New("zstd: frame content size not recorded")

// Codec implements zstd compression.
type Codec struct{}

// New returns a new zstd codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress zstd data.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// Writer wraps w to compress data with zstd.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

// Extension returns "zst".
func (c *Codec) Extension() string {
	return "zst"
}

const (
	frameMagic     = 0xFD2FB528
	skippableMagic = 0x184D2A50
	skippableMask  = 0xFFFFFFF0
)

// ContentSize walks every frame of a zstd file and sums the content sizes
// declared in the frame headers. Skippable frames are stepped over. Block
// headers are followed rather than decoded, so the cost is proportional to
// the number of blocks, not the data size.
func ContentSize(r io.ReaderAt, size int64) (int64, error) {
	var total int64
	var off int64
	for off < size {
		magic, err := readUint(r, off, 4)
		if err != nil {
			return 0, fmt.Errorf("frame magic at %d: %w", off, err)
		}

		if magic&skippableMask == skippableMagic {
			length, err := readUint(r, off+4, 4)
			if err != nil {
				return 0, fmt.Errorf("skippable frame at %d: %w", off, err)
			}
			off += 8 + int64(length)
			continue
		}
		if magic != frameMagic {
			return 0, fmt.Errorf("bad frame magic %#x at %d", magic, off)
		}

		next, content, err := walkFrame(r, off)
		if err != nil {
			return 0, err
		}
		if content > math.MaxInt64-total {
			return 0, fmt.Errorf("content sizes overflow at frame %d", off)
		}
		total += content
		off = next
	}
	if off != size {
		return 0, fmt.Errorf("frame overruns file end (%d > %d)", off, size)
	}
	return total, nil
}

// walkFrame returns the offset after the frame starting at off and its
// declared content size.
func walkFrame(r io.ReaderAt, off int64) (int64, int64, error) {
	descriptor, err := readUint(r, off+4, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("frame descriptor at %d: %w", off, err)
	}
	if descriptor&0x08 != 0 {
		return 0, 0, fmt.Errorf("reserved descriptor bit set at %d", off)
	}
	fcsFlag := descriptor >> 6
	singleSegment := descriptor&0x20 != 0
	hasChecksum := descriptor&0x04 != 0

	header := int64(5)
	if !singleSegment {
		header++
	}
	header += [4]int64{0, 1, 2, 4}[descriptor&0x03]

	var fcsSize int
	switch fcsFlag {
	case 0:
		if singleSegment {
			fcsSize = 1
		}
	case 1:
		fcsSize = 2
	case 2:
		fcsSize = 4
	case 3:
		fcsSize = 8
	}
	if fcsSize == 0 {
		return 0, 0, ErrUnknownSize
	}

	content, err := readUint(r, off+header, fcsSize)
	if err != nil {
		return 0, 0, fmt.Errorf("frame content size at %d: %w", off, err)
	}
	if fcsSize == 2 {
		content += 256
	}
	if content > math.MaxInt64 {
		return 0, 0, fmt.Errorf("frame content size %d at %d out of range", content, off)
	}

	pos := off + header + int64(fcsSize)
	for {
		blockHeader, err := readUint(r, pos, 3)
		if err != nil {
			return 0, 0, fmt.Errorf("block header at %d: %w", pos, err)
		}
		last := blockHeader&1 != 0
		blockSize := int64(blockHeader >> 3)
		switch (blockHeader >> 1) & 3 {
		case 0, 2:
			pos += 3 + blockSize
		case 1:
			pos += 3 + 1
		default:
			return 0, 0, fmt.Errorf("reserved block type at %d", pos)
		}
		if last {
			break
		}
	}
	if hasChecksum {
		pos += 4
	}
	return pos, int64(content), nil
}

// readUint reads an n-byte little-endian unsigned integer at off.
func readUint(r io.ReaderAt, off int64, n int) (uint64, error) {
	var buf [8]byte
	if _, err := r.ReadAt(buf[:n], off); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
