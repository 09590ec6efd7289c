// Package xzindex reads the index of an xz file without decompressing it.
//
// An xz file is one or more streams, optionally separated by stream padding
// (zero bytes in multiples of four). Each stream ends with an index listing
// the unpadded and uncompressed size of every block, followed by a footer
// giving the index size. Walking backwards from the end of the file,
// footer then index then header, yields the uncompressed size of the whole
// file from a handful of small reads.
package xzindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

const (
	headerSize = 12
	footerSize = 12

	// maxIndexSize is the largest backward size a footer can encode.
	maxIndexSize = 1 << 34
)

var (
	headerMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	footerMagic = []byte{'Y', 'Z'}
)

var (
	// ErrFormat indicates data that is not a well-formed xz file.
	ErrFormat = errors.New("xzindex: malformed xz file")

	// ErrChecksum indicates a header, footer or index CRC32 mismatch.
	ErrChecksum = errors.New("xzindex: checksum mismatch")
)

// Record describes one block.
type Record struct {
	UnpaddedSize     int64
	UncompressedSize int64
}

// Stream describes one xz stream and its position in the file.
type Stream struct {
	Offset  int64
	Size    int64
	Padding int64
	Flags   [2]byte
	Records []Record
}

// UncompressedSize is the sum of the stream's block sizes.
func (s *Stream) UncompressedSize() int64 {
	var n int64
	for _, r := range s.Records {
		n += r.UncompressedSize
	}
	return n
}

// Index is the combined index of every stream in a file, in file order.
type Index struct {
	Streams []Stream
}

// UncompressedSize is the total decompressed size of the file.
func (x *Index) UncompressedSize() int64 {
	var n int64
	for i := range x.Streams {
		n += x.Streams[i].UncompressedSize()
	}
	return n
}

// CompressedSize is the number of bytes the streams and their padding
// occupy.
func (x *Index) CompressedSize() int64 {
	var n int64
	for _, s := range x.Streams {
		n += s.Size + s.Padding
	}
	return n
}

// Decode reads the indexes of every stream in r, whose total length is
// size. The whole file must be accounted for.
func Decode(r io.ReaderAt, size int64) (*Index, error) {
	if size < headerSize+footerSize {
		return nil, fmt.Errorf("%w: file of %d bytes is too short", ErrFormat, size)
	}
	if size%4 != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of four", ErrFormat, size)
	}

	var streams []Stream
	var total int64
	pos := size
	for pos > 0 {
		padding, err := skipPadding(r, pos)
		if err != nil {
			return nil, err
		}
		pos -= padding
		if pos == 0 {
			// A file of nothing but padding.
			return nil, fmt.Errorf("%w: no stream before padding", ErrFormat)
		}

		s, err := decodeStream(r, pos)
		if err != nil {
			return nil, err
		}
		if s.Offset < 0 || s.Offset >= pos {
			return nil, fmt.Errorf("%w: stream at %d does not precede %d", ErrFormat, s.Offset, pos)
		}
		n := s.UncompressedSize()
		if n > math.MaxInt64-total {
			return nil, fmt.Errorf("%w: uncompressed size overflows", ErrFormat)
		}
		total += n
		s.Padding = padding
		pos = s.Offset
		streams = append(streams, s)
	}

	// Collected back to front.
	for i, j := 0, len(streams)-1; i < j; i, j = i+1, j-1 {
		streams[i], streams[j] = streams[j], streams[i]
	}
	return &Index{Streams: streams}, nil
}

// skipPadding counts the zero words that end at pos.
func skipPadding(r io.ReaderAt, pos int64) (int64, error) {
	var word [4]byte
	var n int64
	for pos-n >= 4 {
		if _, err := r.ReadAt(word[:], pos-n-4); err != nil {
			return 0, fmt.Errorf("reading stream padding: %w", err)
		}
		if binary.LittleEndian.Uint32(word[:]) != 0 {
			break
		}
		n += 4
	}
	return n, nil
}

// decodeStream decodes the stream that ends at end.
func decodeStream(r io.ReaderAt, end int64) (Stream, error) {
	var s Stream
	if end < headerSize+footerSize {
		return s, fmt.Errorf("%w: truncated stream", ErrFormat)
	}

	footer := make([]byte, footerSize)
	if _, err := r.ReadAt(footer, end-footerSize); err != nil {
		return s, fmt.Errorf("reading stream footer: %w", err)
	}
	backward, flags, err := decodeFooter(footer)
	if err != nil {
		return s, err
	}
	s.Flags = flags

	indexEnd := end - footerSize
	if backward > indexEnd-headerSize {
		return s, fmt.Errorf("%w: index size %d exceeds stream", ErrFormat, backward)
	}
	index := make([]byte, backward)
	if _, err := r.ReadAt(index, indexEnd-backward); err != nil {
		return s, fmt.Errorf("reading stream index: %w", err)
	}
	if s.Records, err = decodeIndex(index); err != nil {
		return s, err
	}

	// Blocks must fit between the stream header and the index.
	room := indexEnd - backward - headerSize
	var blocks int64
	for _, rec := range s.Records {
		if roundUp4(rec.UnpaddedSize) > room-blocks {
			return s, fmt.Errorf("%w: blocks extend before start of file", ErrFormat)
		}
		blocks += roundUp4(rec.UnpaddedSize)
	}
	s.Size = headerSize + blocks + backward + footerSize
	s.Offset = end - s.Size

	header := make([]byte, headerSize)
	if _, err := r.ReadAt(header, s.Offset); err != nil {
		return s, fmt.Errorf("reading stream header: %w", err)
	}
	headerFlags, err := decodeHeader(header)
	if err != nil {
		return s, err
	}
	if headerFlags != flags {
		return s, fmt.Errorf("%w: header and footer flags differ", ErrFormat)
	}
	return s, nil
}

func decodeHeader(b []byte) ([2]byte, error) {
	var flags [2]byte
	if !bytes.Equal(b[:6], headerMagic) {
		return flags, fmt.Errorf("%w: bad stream header magic", ErrFormat)
	}
	if crc32.ChecksumIEEE(b[6:8]) != binary.LittleEndian.Uint32(b[8:12]) {
		return flags, fmt.Errorf("%w: stream header", ErrChecksum)
	}
	if b[6] != 0 || b[7]&0xf0 != 0 {
		return flags, fmt.Errorf("%w: reserved stream flags set", ErrFormat)
	}
	copy(flags[:], b[6:8])
	return flags, nil
}

// decodeFooter returns the index size and stream flags.
func decodeFooter(b []byte) (int64, [2]byte, error) {
	var flags [2]byte
	if !bytes.Equal(b[10:12], footerMagic) {
		return 0, flags, fmt.Errorf("%w: bad stream footer magic", ErrFormat)
	}
	if crc32.ChecksumIEEE(b[4:10]) != binary.LittleEndian.Uint32(b[0:4]) {
		return 0, flags, fmt.Errorf("%w: stream footer", ErrChecksum)
	}
	copy(flags[:], b[8:10])
	backward := (int64(binary.LittleEndian.Uint32(b[4:8])) + 1) * 4
	if backward > maxIndexSize {
		return 0, flags, fmt.Errorf("%w: index size %d", ErrFormat, backward)
	}
	return backward, flags, nil
}

// decodeIndex parses an index: indicator, record count, records, zero
// padding to a multiple of four and a CRC32 of everything before it.
func decodeIndex(b []byte) ([]Record, error) {
	if len(b) < 8 || b[0] != 0x00 {
		return nil, fmt.Errorf("%w: bad index indicator", ErrFormat)
	}
	body := b[:len(b)-4]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(b[len(b)-4:]) {
		return nil, fmt.Errorf("%w: index", ErrChecksum)
	}

	pos := 1
	count, n, err := uvarint(body[pos:])
	if err != nil {
		return nil, err
	}
	pos += n
	// Each record needs at least two bytes.
	if count > uint64(len(body)-pos)/2 {
		return nil, fmt.Errorf("%w: index claims %d records", ErrFormat, count)
	}

	records := make([]Record, 0, count)
	var total int64
	for i := uint64(0); i < count; i++ {
		unpadded, n, err := uvarint(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		uncompressed, n, err := uvarint(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		if unpadded == 0 || unpadded > 1<<62 || uncompressed > 1<<62 {
			return nil, fmt.Errorf("%w: bad index record %d", ErrFormat, i)
		}
		if int64(uncompressed) > math.MaxInt64-total {
			return nil, fmt.Errorf("%w: stream uncompressed size overflows", ErrFormat)
		}
		total += int64(uncompressed)
		records = append(records, Record{
			UnpaddedSize:     int64(unpadded),
			UncompressedSize: int64(uncompressed),
		})
	}

	if len(body)-pos > 3 {
		return nil, fmt.Errorf("%w: trailing bytes in index", ErrFormat)
	}
	for _, c := range body[pos:] {
		if c != 0 {
			return nil, fmt.Errorf("%w: nonzero index padding", ErrFormat)
		}
	}
	return records, nil
}

// uvarint decodes an xz multibyte integer: seven bits per byte, least
// significant first, at most nine bytes, no redundant trailing zero byte.
func uvarint(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(b) && i < 9; i++ {
		c := b[i]
		v |= uint64(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			if c == 0 && i > 0 {
				return 0, 0, fmt.Errorf("%w: non-minimal integer", ErrFormat)
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: truncated integer", ErrFormat)
}

func roundUp4(n int64) int64 {
	return (n + 3) &^ 3
}
