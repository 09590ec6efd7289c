package gzipbackend

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/codec/gzipcodec"
)

func write(t *testing.T, path, mode, data string, opts ...Option) {
	t.Helper()
	b, err := Open(path, backend.MustParseMode(mode), opts...)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", mode, err)
	}
	if _, err := b.Write([]byte(data)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := b.Size(); got != int64(len(data)) {
		t.Errorf("Size() while writing = %d, want %d", got, len(data))
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func readAll(t *testing.T, path string) (string, int64) {
	t.Helper()
	b, err := Open(path, backend.MustParseMode("r"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()
	p := make([]byte, 1<<16)
	n, err := b.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Read() error = %v", err)
	}
	return string(p[:n]), b.Size()
}

func TestBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.gz")
	data := strings.Repeat("compressible text\n", 500)

	best, err := gzipcodec.NewLevel(9)
	if err != nil {
		t.Fatalf("NewLevel() error = %v", err)
	}
	write(t, path, "w", data, WithCodec(best))

	got, size := readAll(t, path)
	if got != data {
		t.Errorf("read %d bytes, want %d", len(got), len(data))
	}
	if size != int64(len(data)) {
		t.Errorf("Size() = %d, want %d", size, len(data))
	}
}

func TestBackend_AppendAddsMember(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.gz")
	write(t, path, "w", "first\n")
	write(t, path, "a", "second\n")

	got, size := readAll(t, path)
	if got != "first\nsecond\n" {
		t.Errorf("content = %q", got)
	}
	// The trailer only describes the last member.
	if size != int64(len("second\n")) {
		t.Errorf("Size() = %d, want %d", size, len("second\n"))
	}
}

func TestBackend_EmptyFileIsEmptyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gz")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	b, err := Open(path, backend.MustParseMode("r"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()
	if !b.EOF() {
		t.Error("EOF() = false for an empty file")
	}
	if b.Size() != 0 {
		t.Errorf("Size() = %d, want 0", b.Size())
	}
}

func TestBackend_BadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gz")
	if err := os.WriteFile(path, []byte("definitely not gzip"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := Open(path, backend.MustParseMode("r")); err == nil {
		t.Error("Open() expected error for a bad header, got nil")
	}
}

func TestBackend_FlushMakesDataReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flush.gz")
	w, err := Open(path, backend.MustParseMode("w"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()
	w.Printf("partial %s\n", "line")
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	r, err := Open(path, backend.MustParseMode("r"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	dst := make([]byte, 64)
	n, _ := r.Gets(dst)
	if got := string(dst[:n]); got != "partial line\n" {
		t.Errorf("Gets() after Flush = %q, want %q", got, "partial line\n")
	}
}
