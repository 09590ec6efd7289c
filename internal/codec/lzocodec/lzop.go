// Package lzocodec provides an LZO codec using the lzop container format.
//
// The LZO1X primitives only compress and decompress whole blocks, so this
// package frames them: a header naming the method and checksum flags, then
// blocks of at most MaxBlockSize uncompressed bytes, each preceded by its
// uncompressed and compressed lengths. A zero uncompressed length ends the
// stream.
package lzocodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/adler32"
	"hash/crc32"
	"io"

	lzo "github.com/rasky/go-lzo"

	"github.com/discochess/cfile/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// MaxBlockSize is the largest uncompressed block lzop produces or accepts.
const MaxBlockSize = 256 * 1024

// Magic is the lzop file signature.
var Magic = []byte{0x89, 'L', 'Z', 'O', 0x00, '\r', '\n', 0x1a, '\n'}

var (
	// ErrHeader indicates a malformed lzop file header.
	ErrHeader = errors.New("lzo: invalid header")

	// ErrChecksum indicates a block or header checksum mismatch.
	ErrChecksum = errors.New("lzo: checksum mismatch")

	// ErrCorrupt indicates a block that cannot be decoded.
	ErrCorrupt = errors.New("lzo: corrupt block")
)

const (
	flagAdler32D    = 0x0001
	flagAdler32C    = 0x0002
	flagExtraField  = 0x0040
	flagCRC32D      = 0x0100
	flagCRC32C      = 0x0200
	flagMultipart   = 0x0400
	flagFilter      = 0x0800
	flagHeaderCRC32 = 0x1000

	version       = 0x1030
	libVersion    = 0x2080
	versionNeeded = 0x0940

	methodLZO1X1   = 1
	methodLZO1X115 = 2
	methodLZO1X999 = 3
)

// Codec implements lzop framing over LZO1X.
type Codec struct{}

// New returns a new lzo codec.
func New() *Codec {
	return &Codec{}
}

// Reader wraps r to decompress an lzop stream. The header is parsed
// immediately.
func (c *Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &reader{r: r, flags: h.flags}, nil
}

// Writer wraps w to compress data into lzop blocks. The header is written on
// the first Write or on Close, whichever comes first.
func (c *Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return &writer{w: w, buf: make([]byte, 0, MaxBlockSize)}, nil
}

// Extension returns "lzo".
func (c *Codec) Extension() string {
	return "lzo"
}

type header struct {
	version uint16
	method  byte
	flags   uint32
	name    string
}

// readHeader consumes exactly the header bytes from r.
func readHeader(r io.Reader) (header, error) {
	var h header

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, fmt.Errorf("%w: reading magic: %v", ErrHeader, err)
	}
	if !bytes.Equal(magic, Magic) {
		return h, fmt.Errorf("%w: bad magic", ErrHeader)
	}

	// Everything after the magic up to the checksum is covered by it.
	var covered bytes.Buffer
	hr := io.TeeReader(r, &covered)

	var fixed [6]byte
	if _, err := io.ReadFull(hr, fixed[:4]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	h.version = binary.BigEndian.Uint16(fixed[0:2])
	if h.version < 0x0900 {
		return h, fmt.Errorf("%w: version %#x too old", ErrHeader, h.version)
	}
	if h.version >= 0x0940 {
		if _, err := io.ReadFull(hr, fixed[4:6]); err != nil {
			return h, fmt.Errorf("%w: %v", ErrHeader, err)
		}
	}

	var one [1]byte
	if _, err := io.ReadFull(hr, one[:]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	h.method = one[0]
	switch h.method {
	case methodLZO1X1, methodLZO1X115, methodLZO1X999:
	default:
		return h, fmt.Errorf("%w: unsupported method %d", ErrHeader, h.method)
	}
	if h.version >= 0x0940 {
		if _, err := io.ReadFull(hr, one[:]); err != nil { // level
			return h, fmt.Errorf("%w: %v", ErrHeader, err)
		}
	}

	var err error
	if h.flags, err = readUint32(hr); err != nil {
		return h, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	if h.flags&flagMultipart != 0 {
		return h, fmt.Errorf("%w: multipart archives are not supported", ErrHeader)
	}
	if h.flags&flagFilter != 0 {
		return h, fmt.Errorf("%w: filters are not supported", ErrHeader)
	}

	// mode, mtime low, and mtime high on newer versions.
	skip := 8
	if h.version >= 0x0940 {
		skip = 12
	}
	if _, err := io.CopyN(io.Discard, hr, int64(skip)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrHeader, err)
	}

	if _, err := io.ReadFull(hr, one[:]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrHeader, err)
	}
	name := make([]byte, one[0])
	if _, err := io.ReadFull(hr, name); err != nil {
		return h, fmt.Errorf("%w: reading name: %v", ErrHeader, err)
	}
	h.name = string(name)

	want, err := readUint32(r)
	if err != nil {
		return h, fmt.Errorf("%w: reading checksum: %v", ErrHeader, err)
	}
	if got := headerChecksum(h.flags, covered.Bytes()); got != want {
		return h, fmt.Errorf("%w: header", ErrChecksum)
	}

	if h.flags&flagExtraField != 0 {
		n, err := readUint32(r)
		if err != nil {
			return h, fmt.Errorf("%w: extra field: %v", ErrHeader, err)
		}
		// Extra field data followed by its checksum.
		if _, err := io.CopyN(io.Discard, r, int64(n)+4); err != nil {
			return h, fmt.Errorf("%w: extra field: %v", ErrHeader, err)
		}
	}
	return h, nil
}

func headerChecksum(flags uint32, data []byte) uint32 {
	if flags&flagHeaderCRC32 != 0 {
		return crc32.ChecksumIEEE(data)
	}
	return adler32.Checksum(data)
}

func writeHeader(w io.Writer) error {
	var h bytes.Buffer
	be := func(v any) { _ = binary.Write(&h, binary.BigEndian, v) }
	be(uint16(version))
	be(uint16(libVersion))
	be(uint16(versionNeeded))
	h.WriteByte(methodLZO1X1)
	h.WriteByte(5) // level
	be(uint32(flagAdler32D))
	be(uint32(0o100644)) // mode
	be(uint32(0))        // mtime low
	be(uint32(0))        // mtime high
	h.WriteByte(0)       // no name

	out := make([]byte, 0, len(Magic)+h.Len()+4)
	out = append(out, Magic...)
	out = append(out, h.Bytes()...)
	out = binary.BigEndian.AppendUint32(out, adler32.Checksum(h.Bytes()))
	_, err := w.Write(out)
	return err
}

type blockHeader struct {
	dstLen uint32
	srcLen uint32
	dstSum uint32
	hasSum bool
	crc    bool
}

// readBlockHeader returns a zero dstLen at the end-of-stream marker.
func readBlockHeader(r io.Reader, flags uint32) (blockHeader, error) {
	var b blockHeader
	var err error
	if b.dstLen, err = readUint32(r); err != nil {
		return b, err
	}
	if b.dstLen == 0 {
		return b, nil
	}
	if b.dstLen > 64*1024*1024 {
		return b, fmt.Errorf("%w: block length %d", ErrCorrupt, b.dstLen)
	}
	if b.srcLen, err = readUint32(r); err != nil {
		return b, err
	}
	if b.srcLen == 0 || b.srcLen > b.dstLen {
		return b, fmt.Errorf("%w: compressed length %d for %d bytes", ErrCorrupt, b.srcLen, b.dstLen)
	}

	if flags&flagAdler32D != 0 {
		if b.dstSum, err = readUint32(r); err != nil {
			return b, err
		}
		b.hasSum = true
	}
	if flags&flagCRC32D != 0 {
		sum, err := readUint32(r)
		if err != nil {
			return b, err
		}
		if !b.hasSum {
			b.dstSum, b.hasSum, b.crc = sum, true, true
		}
	}
	if b.srcLen < b.dstLen {
		// Compressed-data checksums are not verified.
		n := 0
		if flags&flagAdler32C != 0 {
			n += 4
		}
		if flags&flagCRC32C != 0 {
			n += 4
		}
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return b, err
		}
	}
	return b, nil
}

type reader struct {
	r     io.Reader
	flags uint32
	block []byte
	pos   int
	err   error
}

func (lr *reader) Read(p []byte) (int, error) {
	for lr.pos == len(lr.block) {
		if lr.err != nil {
			return 0, lr.err
		}
		lr.err = lr.next()
	}
	n := copy(p, lr.block[lr.pos:])
	lr.pos += n
	return n, nil
}

// next decodes the following block into lr.block.
func (lr *reader) next() error {
	lr.block, lr.pos = lr.block[:0], 0

	b, err := readBlockHeader(lr.r, lr.flags)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if b.dstLen == 0 {
		return io.EOF
	}

	if b.srcLen == b.dstLen {
		if cap(lr.block) < int(b.dstLen) {
			lr.block = make([]byte, b.dstLen)
		}
		lr.block = lr.block[:b.dstLen]
		if _, err := io.ReadFull(lr.r, lr.block); err != nil {
			lr.block = lr.block[:0]
			return io.ErrUnexpectedEOF
		}
	} else {
		src := make([]byte, b.srcLen)
		if _, err := io.ReadFull(lr.r, src); err != nil {
			return io.ErrUnexpectedEOF
		}
		out, err := lzo.Decompress1X(bytes.NewReader(src), len(src), int(b.dstLen))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(out) != int(b.dstLen) {
			return fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupt, len(out), b.dstLen)
		}
		lr.block = out
	}

	if b.hasSum {
		var sum uint32
		if b.crc {
			sum = crc32.ChecksumIEEE(lr.block)
		} else {
			sum = adler32.Checksum(lr.block)
		}
		if sum != b.dstSum {
			lr.block = lr.block[:0]
			return ErrChecksum
		}
	}
	return nil
}

func (lr *reader) Close() error { return nil }

type writer struct {
	w         io.Writer
	buf       []byte
	wroteHead bool
	closed    bool
	err       error
}

func (lw *writer) Write(p []byte) (int, error) {
	if lw.err != nil {
		return 0, lw.err
	}
	if lw.closed {
		return 0, errors.New("lzo: write after close")
	}
	n := 0
	for len(p) > 0 {
		room := MaxBlockSize - len(lw.buf)
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		lw.buf = append(lw.buf, chunk...)
		n += len(chunk)
		p = p[len(chunk):]
		if len(lw.buf) == MaxBlockSize {
			if err := lw.Flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Flush emits the pending bytes as one block.
func (lw *writer) Flush() error {
	if lw.err != nil {
		return lw.err
	}
	if !lw.wroteHead {
		if lw.err = writeHeader(lw.w); lw.err != nil {
			return lw.err
		}
		lw.wroteHead = true
	}
	if len(lw.buf) == 0 {
		return nil
	}

	data := lzo.Compress1X(lw.buf)
	if len(data) >= len(lw.buf) {
		data = lw.buf
	}
	head := make([]byte, 0, 12)
	head = binary.BigEndian.AppendUint32(head, uint32(len(lw.buf)))
	head = binary.BigEndian.AppendUint32(head, uint32(len(data)))
	head = binary.BigEndian.AppendUint32(head, adler32.Checksum(lw.buf))
	if _, lw.err = lw.w.Write(head); lw.err != nil {
		return lw.err
	}
	if _, lw.err = lw.w.Write(data); lw.err != nil {
		return lw.err
	}
	lw.buf = lw.buf[:0]
	return nil
}

// Close flushes the last block and writes the end-of-stream marker. It does
// not close the underlying writer.
func (lw *writer) Close() error {
	if lw.closed {
		return nil
	}
	if err := lw.Flush(); err != nil {
		return err
	}
	lw.closed = true
	_, lw.err = lw.w.Write([]byte{0, 0, 0, 0})
	return lw.err
}

// UncompressedSize sums the uncompressed block lengths of an lzop file by
// walking the block headers and seeking over the data.
func UncompressedSize(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	h, err := readHeader(r)
	if err != nil {
		return 0, err
	}
	var total int64
	for {
		b, err := readBlockHeader(r, h.flags)
		if err != nil {
			return 0, fmt.Errorf("reading block header: %w", err)
		}
		if b.dstLen == 0 {
			return total, nil
		}
		if _, err := r.Seek(int64(b.srcLen), io.SeekCurrent); err != nil {
			return 0, err
		}
		total += int64(b.dstLen)
	}
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
