package buffer

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// readerRefill adapts an io.Reader to a RefillFunc and counts calls.
type readerRefill struct {
	r     io.Reader
	calls int
}

func (rr *readerRefill) refill(buf []byte) int {
	rr.calls++
	n, _ := io.ReadFull(rr.r, buf)
	return n
}

func newTestBuffer(data string, capacity int) (*Buffer, *readerRefill) {
	rr := &readerRefill{r: strings.NewReader(data)}
	return New(capacity, rr.refill), rr
}

func checkInvariant(t *testing.T, b *Buffer) {
	t.Helper()
	if b.Pos() < 0 || b.Pos() > b.Len() || b.Len() > b.Cap() {
		t.Fatalf("invariant broken: pos=%d len=%d cap=%d", b.Pos(), b.Len(), b.Cap())
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	b := New(0, func([]byte) int { return 0 })
	if b.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d, want %d", b.Cap(), DefaultCapacity)
	}
}

func TestBuffer_ReadByte(t *testing.T) {
	b, rr := newTestBuffer("abcdefg", 3)

	var got []byte
	for {
		c, err := b.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadByte() error = %v", err)
		}
		checkInvariant(t, b)
		got = append(got, c)
	}
	if string(got) != "abcdefg" {
		t.Errorf("ReadByte() sequence = %q, want %q", got, "abcdefg")
	}
	// 3 + 3 + 1, then one refill returning zero.
	if rr.calls != 4 {
		t.Errorf("refill calls = %d, want 4", rr.calls)
	}
	if _, err := b.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadByte() after end error = %v, want io.EOF", err)
	}
}

func TestBuffer_FillLine(t *testing.T) {
	b, _ := newTestBuffer("one\ntwo three\n\nend", 4)
	dst := make([]byte, 6)

	want := []string{"one\n", "two th", "ree\n", "\n", "end"}
	for i, w := range want {
		n := b.FillLine(dst)
		checkInvariant(t, b)
		if got := string(dst[:n]); got != w {
			t.Errorf("FillLine() #%d = %q, want %q", i, got, w)
		}
	}
	if n := b.FillLine(dst); n != 0 {
		t.Errorf("FillLine() at end = %d, want 0", n)
	}
}

func TestBuffer_FillBlock(t *testing.T) {
	data := strings.Repeat("0123456789", 100)
	b, _ := newTestBuffer(data, 64)

	first := make([]byte, 333)
	if n := b.FillBlock(first); n != len(first) {
		t.Fatalf("FillBlock() = %d, want %d", n, len(first))
	}
	rest := make([]byte, 1000)
	n := b.FillBlock(rest)
	if n != 1000-333 {
		t.Fatalf("FillBlock() short count = %d, want %d", n, 1000-333)
	}
	if got := string(first) + string(rest[:n]); got != data {
		t.Error("FillBlock() did not reproduce the stream")
	}
	if n := b.FillBlock(rest); n != 0 {
		t.Errorf("FillBlock() at end = %d, want 0", n)
	}
}

func TestBuffer_Empty(t *testing.T) {
	b, _ := newTestBuffer("xy", 2)

	if b.Empty() {
		t.Fatal("Empty() = true before any read")
	}
	if _, err := b.ReadByte(); err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if b.Empty() {
		t.Fatal("Empty() = true with one byte left")
	}
	if _, err := b.ReadByte(); err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if !b.Empty() {
		t.Error("Empty() = false after consuming the last byte")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after exhaustion, want 0", b.Len())
	}
}

func TestBuffer_EmptyStream(t *testing.T) {
	b, _ := newTestBuffer("", 16)
	if !b.Empty() {
		t.Error("Empty() = false for an empty stream")
	}
	if n := b.FillLine(make([]byte, 4)); n != 0 {
		t.Errorf("FillLine() = %d, want 0", n)
	}
}

func TestBuffer_BadRefillCountIgnored(t *testing.T) {
	b := New(4, func(buf []byte) int { return len(buf) + 10 })
	if !b.Empty() {
		t.Error("Empty() = false after an out-of-range refill")
	}
	checkInvariant(t, b)
}

func TestBuffer_MixedReads(t *testing.T) {
	data := "header\n" + strings.Repeat("z", 50)
	b, _ := newTestBuffer(data, 8)

	line := make([]byte, 32)
	n := b.FillLine(line)
	if string(line[:n]) != "header\n" {
		t.Fatalf("FillLine() = %q", line[:n])
	}
	c, err := b.ReadByte()
	if err != nil || c != 'z' {
		t.Fatalf("ReadByte() = (%q, %v), want ('z', nil)", c, err)
	}
	block := make([]byte, 100)
	n = b.FillBlock(block)
	if !bytes.Equal(block[:n], bytes.Repeat([]byte("z"), 49)) {
		t.Errorf("FillBlock() = %d bytes, want 49 z's", n)
	}
}
