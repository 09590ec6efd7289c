// Package config loads the settings shared by the cfile command and the fx
// module from defaults, an optional YAML or JSON file and CFILE_*
// environment variables.
package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/discochess/cfile"
)

// Config is the complete configuration.
type Config struct {
	IO      IOConfig      `koanf:"io"`
	Size    SizeConfig    `koanf:"size"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// IOConfig holds backend selection and buffering settings.
type IOConfig struct {
	BufferSize int  `koanf:"buffer_size"`
	Sniffing   bool `koanf:"sniffing"`
	GzipLevel  int  `koanf:"gzip_level"`
	Bzip2Level int  `koanf:"bzip2_level"`
}

// SizeConfig holds size oracle settings.
type SizeConfig struct {
	// Cache enables the extended-attribute cache for bzip2 sizes.
	Cache bool `koanf:"cache"`

	// Memo is the number of sizes remembered in memory; 0 disables it.
	Memo int `koanf:"memo"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig selects where handle metrics go: "none", "log" or
// "prometheus".
type MetricsConfig struct {
	Sink string `koanf:"sink"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		IO: IOConfig{
			BufferSize: cfile.DefaultBufferSize,
			GzipLevel:  -1,
			Bzip2Level: 6,
		},
		Size: SizeConfig{
			Cache: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Sink: "none",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.IO.BufferSize <= 0 {
		return fmt.Errorf("io.buffer_size must be positive, got %d", c.IO.BufferSize)
	}
	if c.IO.GzipLevel < -2 || c.IO.GzipLevel > 9 {
		return fmt.Errorf("io.gzip_level must be between -2 and 9, got %d", c.IO.GzipLevel)
	}
	if c.IO.Bzip2Level < 1 || c.IO.Bzip2Level > 9 {
		return fmt.Errorf("io.bzip2_level must be between 1 and 9, got %d", c.IO.Bzip2Level)
	}
	if c.Size.Memo < 0 {
		return fmt.Errorf("size.memo must not be negative, got %d", c.Size.Memo)
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	switch c.Metrics.Sink {
	case "none", "log", "prometheus":
	default:
		return fmt.Errorf("metrics.sink must be none, log or prometheus, got %q", c.Metrics.Sink)
	}
	return nil
}

// ZapLevel parses Level.
func (l LogConfig) ZapLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Options converts the I/O and size settings into arena options. Logging
// and metrics are wired by the caller.
func (c Config) Options() []cfile.Option {
	return []cfile.Option{
		cfile.WithBufferSize(c.IO.BufferSize),
		cfile.WithSniffing(c.IO.Sniffing),
		cfile.WithGzipLevel(c.IO.GzipLevel),
		cfile.WithBzip2Level(c.IO.Bzip2Level),
		cfile.WithSizeCache(c.Size.Cache),
		cfile.WithSizeMemo(c.Size.Memo),
	}
}
