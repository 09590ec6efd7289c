package xzindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) *Index {
	t.Helper()
	idx, err := Decode(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return idx
}

func TestDecode_SingleStream(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte("x")},
		{"text", bytes.Repeat([]byte("xz index walk\n"), 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := compress(t, tt.data)
			idx := decode(t, file)
			if len(idx.Streams) != 1 {
				t.Fatalf("len(Streams) = %d, want 1", len(idx.Streams))
			}
			if got := idx.UncompressedSize(); got != int64(len(tt.data)) {
				t.Errorf("UncompressedSize() = %d, want %d", got, len(tt.data))
			}
			if got := idx.CompressedSize(); got != int64(len(file)) {
				t.Errorf("CompressedSize() = %d, want %d", got, len(file))
			}
		})
	}
}

func TestDecode_ConcatenatedWithPadding(t *testing.T) {
	first := bytes.Repeat([]byte("a"), 70000)
	second := []byte("tail\n")

	var file []byte
	file = append(file, compress(t, first)...)
	file = append(file, make([]byte, 8)...)
	file = append(file, compress(t, second)...)
	file = append(file, make([]byte, 4)...)

	idx := decode(t, file)
	if len(idx.Streams) != 2 {
		t.Fatalf("len(Streams) = %d, want 2", len(idx.Streams))
	}
	if got := idx.Streams[0].UncompressedSize(); got != int64(len(first)) {
		t.Errorf("Streams[0].UncompressedSize() = %d, want %d", got, len(first))
	}
	if idx.Streams[0].Offset != 0 {
		t.Errorf("Streams[0].Offset = %d, want 0", idx.Streams[0].Offset)
	}
	if idx.Streams[0].Padding != 8 || idx.Streams[1].Padding != 4 {
		t.Errorf("Padding = %d, %d, want 8, 4", idx.Streams[0].Padding, idx.Streams[1].Padding)
	}
	if got, want := idx.UncompressedSize(), int64(len(first)+len(second)); got != want {
		t.Errorf("UncompressedSize() = %d, want %d", got, want)
	}
	if got := idx.CompressedSize(); got != int64(len(file)) {
		t.Errorf("CompressedSize() = %d, want %d", got, len(file))
	}
}

func TestDecode_Errors(t *testing.T) {
	valid := compress(t, []byte("some content that will be damaged"))

	truncated := valid[:len(valid)-4]
	badFooter := append([]byte{}, valid...)
	badFooter[len(badFooter)-6] ^= 0x01
	badHeader := append([]byte{}, valid...)
	badHeader[0] = 0x00
	badIndex := append([]byte{}, valid...)
	badIndex[len(badIndex)-footerSize-5] ^= 0x40

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too short", []byte{0, 0, 0, 0}, ErrFormat},
		{"not a multiple of four", append(append([]byte{}, valid...), 1), ErrFormat},
		{"padding only", make([]byte, 32), ErrFormat},
		{"truncated trailer", truncated, nil},
		{"footer checksum", badFooter, ErrChecksum},
		{"header magic", badHeader, ErrFormat},
		{"index damaged", badIndex, nil},
		{"plain text", []byte("this is not an xz file at all...."), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), int64(len(tt.data)))
			if err == nil {
				t.Fatal("Decode() expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// appendUvarint appends v in the xz multibyte integer encoding.
func appendUvarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// buildIndex encodes records given as {unpadded, uncompressed} pairs.
func buildIndex(records [][2]uint64) []byte {
	b := []byte{0x00}
	b = appendUvarint(b, uint64(len(records)))
	for _, r := range records {
		b = appendUvarint(b, r[0])
		b = appendUvarint(b, r[1])
	}
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return binary.LittleEndian.AppendUint32(b, crc32.ChecksumIEEE(b))
}

// buildFooter encodes the footer for an index of indexLen bytes and no
// check type.
func buildFooter(indexLen int) []byte {
	body := binary.LittleEndian.AppendUint32(nil, uint32(indexLen/4-1))
	body = append(body, 0, 0)
	footer := binary.LittleEndian.AppendUint32(nil, crc32.ChecksumIEEE(body))
	footer = append(footer, body...)
	return append(footer, 'Y', 'Z')
}

// buildStream assembles a stream from raw block bytes and the index
// records describing them. Block contents are never decoded by Decode.
func buildStream(blocks []byte, records [][2]uint64) []byte {
	flags := []byte{0, 0}
	s := append([]byte{}, headerMagic...)
	s = append(s, flags...)
	s = binary.LittleEndian.AppendUint32(s, crc32.ChecksumIEEE(flags))
	s = append(s, blocks...)
	index := buildIndex(records)
	s = append(s, index...)
	return append(s, buildFooter(len(index))...)
}

func TestDecode_BuiltStream(t *testing.T) {
	file := buildStream(bytes.Repeat([]byte{0xAA}, 12), [][2]uint64{{5, 100}, {4, 23}})
	idx := decode(t, file)
	if got := idx.UncompressedSize(); got != 123 {
		t.Errorf("UncompressedSize() = %d, want 123", got)
	}
	if got := idx.CompressedSize(); got != int64(len(file)) {
		t.Errorf("CompressedSize() = %d, want %d", got, len(file))
	}
}

func TestDecode_OutOfRangeSizes(t *testing.T) {
	const big = 1 << 62

	// Blocks claimed by the index far exceed the bytes before it.
	index := buildIndex([][2]uint64{{big, 0}, {big, 0}, {big, 0}, {big - 72, 0}})
	oversized := make([]byte, headerSize)
	oversized = append(oversized, index...)
	oversized = append(oversized, buildFooter(len(index))...)
	oversized = append(oversized, buildStream(nil, nil)...)

	wrapped := buildStream(bytes.Repeat([]byte{0xAA}, 20), [][2]uint64{
		{4, big}, {4, big}, {4, big}, {4, big - 1}, {4, 10},
	})

	half := [][2]uint64{{4, big}, {4, big - 1}}
	twoStreams := append(buildStream(make([]byte, 8), half), buildStream(make([]byte, 8), half)...)

	tests := []struct {
		name string
		data []byte
	}{
		{"blocks larger than file", oversized},
		{"stream total overflows", wrapped},
		{"file total overflows", twoStreams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := Decode(bytes.NewReader(tt.data), int64(len(tt.data)))
				done <- err
			}()
			select {
			case err := <-done:
				if !errors.Is(err, ErrFormat) {
					t.Errorf("Decode() error = %v, want ErrFormat", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Decode() did not return")
			}
		})
	}

	// One stream summing to exactly the largest size is accepted.
	file := buildStream(make([]byte, 8), half)
	if got := decode(t, file).UncompressedSize(); got != 1<<63-1 {
		t.Errorf("UncompressedSize() = %d, want %d", got, int64(1<<63-1))
	}
}

func TestUvarint(t *testing.T) {
	tests := []struct {
		in      []byte
		want    uint64
		n       int
		wantErr bool
	}{
		{[]byte{0x00}, 0, 1, false},
		{[]byte{0x7f}, 127, 1, false},
		{[]byte{0x80, 0x01}, 128, 2, false},
		{[]byte{0xff, 0xff, 0x03}, 65535, 3, false},
		{[]byte{0x80, 0x00}, 0, 0, true},
		{[]byte{0x80}, 0, 0, true},
		{bytes.Repeat([]byte{0xff}, 10), 0, 0, true},
	}

	for _, tt := range tests {
		got, n, err := uvarint(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("uvarint(% x) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want || n != tt.n {
			t.Errorf("uvarint(% x) = (%d, %d), want (%d, %d)", tt.in, got, n, tt.want, tt.n)
		}
	}
}
