// Package buffer provides a fixed-capacity refillable byte buffer used to
// synthesize byte and line reads on top of codecs that only decode blocks.
package buffer

import "io"

// DefaultCapacity is the buffer size used when none is given.
const DefaultCapacity = 4096

// RefillFunc decodes up to len(buf) bytes into buf and returns how many were
// written. Returning 0 signals the end of the stream; it must keep returning
// 0 afterwards.
type RefillFunc func(buf []byte) int

// Buffer holds decoded bytes between refills.
//
// Invariant: 0 <= pos <= length <= len(data). The buffer is exhausted once a
// refill reports zero bytes, after which length stays 0.
type Buffer struct {
	data   []byte
	length int
	pos    int
	refill RefillFunc
}

// New allocates a buffer of the given capacity. A non-positive capacity
// selects DefaultCapacity.
func New(capacity int, refill RefillFunc) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		data:   make([]byte, capacity),
		refill: refill,
	}
}

// fill replaces the buffer contents with the next decoded chunk and reports
// whether anything arrived.
func (b *Buffer) fill() bool {
	b.pos = 0
	b.length = b.refill(b.data)
	if b.length < 0 || b.length > len(b.data) {
		b.length = 0
	}
	return b.length > 0
}

// ReadByte returns the next byte, refilling as needed. It returns io.EOF the
// first time a refill yields nothing.
func (b *Buffer) ReadByte() (byte, error) {
	if b.pos == b.length && !b.fill() {
		return 0, io.EOF
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}

// FillLine copies bytes into dst until dst is full, a newline has been
// copied, or the stream ends. It returns the number of bytes copied; zero
// means the stream was already exhausted.
func (b *Buffer) FillLine(dst []byte) int {
	n := 0
	for n < len(dst) {
		if b.pos == b.length && !b.fill() {
			break
		}
		avail := b.data[b.pos:b.length]
		if room := len(dst) - n; len(avail) > room {
			avail = avail[:room]
		}
		for i, c := range avail {
			dst[n] = c
			n++
			if c == '\n' {
				b.pos += i + 1
				return n
			}
		}
		b.pos += len(avail)
	}
	return n
}

// FillBlock copies up to len(dst) bytes, refilling between chunks. A short
// count means the stream ended.
func (b *Buffer) FillBlock(dst []byte) int {
	n := 0
	for n < len(dst) {
		if b.pos == b.length && !b.fill() {
			break
		}
		copied := copy(dst[n:], b.data[b.pos:b.length])
		b.pos += copied
		n += copied
	}
	return n
}

// Empty reports whether no further bytes can be obtained. If every buffered
// byte has been consumed it attempts one refill first.
func (b *Buffer) Empty() bool {
	if b.pos < b.length {
		return false
	}
	return !b.fill()
}

// Len returns the number of valid bytes currently held.
func (b *Buffer) Len() int { return b.length }

// Pos returns the read cursor.
func (b *Buffer) Pos() int { return b.pos }

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }
