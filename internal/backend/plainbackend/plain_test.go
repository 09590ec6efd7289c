package plainbackend

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/discochess/cfile/internal/backend"
)

func TestBackend_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")

	w, err := Open(path, backend.MustParseMode("w"), WithBufferSize(16))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := w.Printf("line %d\n", 1); err != nil {
		t.Fatalf("Printf() error = %v", err)
	}
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := w.Size(); got != 14 {
		t.Errorf("Size() while writing = %d, want 14", got)
	}
	if w.EOF() {
		t.Error("EOF() = true in write mode")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := Open(path, backend.MustParseMode("r"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	if got := r.Size(); got != 14 {
		t.Errorf("Size() = %d, want 14", got)
	}

	dst := make([]byte, 64)
	for _, want := range []string{"line 1\n", "line 2\n"} {
		n, err := r.Gets(dst)
		if err != nil {
			t.Fatalf("Gets() error = %v", err)
		}
		if got := string(dst[:n]); got != want {
			t.Errorf("Gets() = %q, want %q", got, want)
		}
	}
	if !r.EOF() {
		t.Error("EOF() = false after the last line")
	}
	if _, err := r.Gets(dst); !errors.Is(err, io.EOF) {
		t.Errorf("Gets() at end error = %v, want io.EOF", err)
	}
}

func TestBackend_WrongDirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	w, err := Open(path, backend.MustParseMode("w"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := w.Read(make([]byte, 1)); !errors.Is(err, backend.ErrNotReadable) {
		t.Errorf("Read() error = %v, want ErrNotReadable", err)
	}
	w.Close()

	r, err := Open(path, backend.MustParseMode("r"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	if _, err := r.Write([]byte("x")); !errors.Is(err, backend.ErrNotWritable) {
		t.Errorf("Write() error = %v, want ErrNotWritable", err)
	}
	if err := r.Flush(); err != nil {
		t.Errorf("Flush() on read handle error = %v", err)
	}
}

func TestBackend_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	for _, s := range []string{"first\n", "second\n"} {
		b, err := Open(path, backend.MustParseMode("a"))
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		b.Write([]byte(s))
		if err := b.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "first\nsecond\n" {
		t.Errorf("content = %q", got)
	}
}

func TestBackend_OpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), backend.MustParseMode("r"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want os.ErrNotExist", err)
	}
}

func TestFromFile_StdioStaysOpen(t *testing.T) {
	b := FromFile(os.Stdout, backend.MustParseMode("w"))
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stdout.Stat(); err != nil {
		t.Errorf("stdout closed by Close(): %v", err)
	}
}

func TestFromFile_PipeSizeIsZero(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	defer pw.Close()
	b := FromFile(pr, backend.MustParseMode("r"))
	defer b.Close()
	if got := b.Size(); got != 0 {
		t.Errorf("Size() of a pipe = %d, want 0", got)
	}
}
