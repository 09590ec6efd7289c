package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestConvertCatSize(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input.txt")
	data := strings.Repeat("a line of input\n", 1000)
	if err := os.WriteFile(src, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	xz := filepath.Join(dir, "input.txt.xz")
	execute(t, "convert", src, xz)

	gz := filepath.Join(dir, "copy.gz")
	execute(t, "cat", "-o", gz, xz)

	back := filepath.Join(dir, "back.txt")
	execute(t, "convert", gz, back)
	got, err := os.ReadFile(back)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != data {
		t.Errorf("round trip produced %d bytes, want %d", len(got), len(data))
	}

	out := execute(t, "size", xz, gz)
	for _, name := range []string{xz, gz} {
		want := "16000\t" + name
		if !strings.Contains(out, want) {
			t.Errorf("size output %q missing %q", out, want)
		}
	}

	out = execute(t, "verify", xz, gz, back)
	if !strings.Contains(out, "All files verified successfully.") {
		t.Errorf("verify output = %q", out)
	}

	out = execute(t, "info", "--json", xz)
	if !strings.Contains(out, `"backend":"xz file"`) || !strings.Contains(out, `"uncompressed_bytes":16000`) {
		t.Errorf("info output = %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
