package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
	if got := len(cfg.Options()); got != 6 {
		t.Errorf("len(Options()) = %d, want 6", got)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"config.yaml", "io:\n  buffer_size: 8192\n  sniffing: true\nsize:\n  memo: 64\nlog:\n  level: debug\n"},
		{"config.json", `{"io": {"buffer_size": 8192, "sniffing": true}, "size": {"memo": 64}, "log": {"level": "debug"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.IO.BufferSize != 8192 || !cfg.IO.Sniffing {
				t.Errorf("IO = %+v", cfg.IO)
			}
			if cfg.Size.Memo != 64 || !cfg.Size.Cache {
				t.Errorf("Size = %+v", cfg.Size)
			}
			if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
				t.Errorf("Log = %+v", cfg.Log)
			}
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("io:\n  buffer_size: 8192\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CFILE_IO_BUFFER_SIZE", "16384")
	t.Setenv("CFILE_METRICS_SINK", "prometheus")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.IO.BufferSize != 16384 {
		t.Errorf("IO.BufferSize = %d, want 16384", cfg.IO.BufferSize)
	}
	if cfg.Metrics.Sink != "prometheus" {
		t.Errorf("Metrics.Sink = %q, want prometheus", cfg.Metrics.Sink)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), "not found"},
		{"unknown format", write("config.toml", "x = 1"), "unknown format"},
		{"bad level", write("level.yaml", "log:\n  level: loud\n"), "log.level"},
		{"bad bzip2 level", write("bz.yaml", "io:\n  bzip2_level: 12\n"), "io.bzip2_level"},
		{"bad sink", write("sink.yaml", "metrics:\n  sink: statsd\n"), "metrics.sink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CFILE_IO_BUFFER_SIZE": "io.buffer_size",
		"CFILE_SIZE_MEMO":      "size.memo",
		"CFILE_LOG_LEVEL":      "log.level",
		"CFILE_VERBOSE":        "verbose",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
