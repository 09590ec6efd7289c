package xzcodec

import (
	"bytes"
	"io"
	"testing"
)

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := New().Writer(&buf)
	if err != nil {
		t.Fatalf("Writer() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestCodec_Extension(t *testing.T) {
	if got := New().Extension(); got != "xz" {
		t.Errorf("Extension() = %q, want %q", got, "xz")
	}
}

func TestCodec_RoundTrip_ConcatenatedWithPadding(t *testing.T) {
	first := bytes.Repeat([]byte("first stream\n"), 200)
	second := []byte("second stream\n")

	var data []byte
	data = append(data, compress(t, first)...)
	data = append(data, 0, 0, 0, 0)
	data = append(data, compress(t, second)...)

	r, err := New().Reader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := append(append([]byte{}, first...), second...)
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAll() = %d bytes, want %d", len(got), len(want))
	}
}

func TestCodec_Reader_InvalidData(t *testing.T) {
	if _, err := New().Reader(bytes.NewReader([]byte("definitely not xz"))); err == nil {
		t.Error("Reader() expected error for invalid header, got nil")
	}
}
