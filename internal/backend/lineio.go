package backend

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
)

// ReadLineInto copies at most len(dst) bytes from r into dst, stopping after
// the first newline. It is the native line primitive for backends whose
// reader is a bufio.Reader. When nothing could be read the returned error is
// the reader's error (io.EOF at end of stream).
func ReadLineInto(r *bufio.Reader, dst []byte) (int, error) {
	n := 0
	for n < len(dst) {
		if r.Buffered() == 0 {
			if _, err := r.Peek(1); err != nil {
				if n == 0 {
					return 0, err
				}
				return n, nil
			}
		}

		chunk, _ := r.Peek(min(r.Buffered(), len(dst)-n))
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			chunk = chunk[:i+1]
		}
		copied := copy(dst[n:], chunk)
		r.Discard(copied)
		n += copied
		if dst[n-1] == '\n' {
			break
		}
	}
	return n, nil
}

// ReadFull reads len(p) bytes unless the stream ends first. A short read at
// the end of stream reports io.EOF; other errors pass through unchanged.
func ReadFull(r io.Reader, p []byte) (int, error) {
	n, err := io.ReadFull(r, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// AtEOF reports whether r has no further bytes to offer.
func AtEOF(r *bufio.Reader) bool {
	_, err := r.Peek(1)
	return err != nil
}

// OpenFlags returns the os.OpenFile flags for a write or append mode.
func OpenFlags(m Mode) int {
	if m.Append() {
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
}

// IsStdio reports whether f is one of the process standard streams, which
// a handle must never close.
func IsStdio(f *os.File) bool {
	return f == os.Stdin || f == os.Stdout || f == os.Stderr
}
