// Package sizecount computes the uncompressed size of a file by
// decompressing it completely and counting the output.
package sizecount

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/codec"
)

// Counter returns the uncompressed length of the file at path.
type Counter interface {
	Count(ctx context.Context, path string) (int64, error)
}

// Command counts by running an external decompressor that writes the
// decoded stream to stdout, e.g. "bzip2 -dc".
type Command struct {
	// Name is the program to run.
	Name string
	// Args precede the path on the command line.
	Args []string

	logger *zap.Logger
}

// Compile-time check that Command implements Counter.
var _ Counter = (*Command)(nil)

// NewCommand returns a Command running name with args, then the path.
func NewCommand(logger *zap.Logger, name string, args ...string) *Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Command{Name: name, Args: args, logger: logger}
}

// Count runs the command and counts the bytes it prints. A non-zero exit
// status is an error even if output was produced.
func (c *Command) Count(ctx context.Context, path string) (int64, error) {
	args := append(append([]string{}, c.Args...), path)
	cmd := exec.CommandContext(ctx, c.Name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("creating pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting %s: %w", c.Name, err)
	}

	n, copyErr := io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()
	if copyErr != nil {
		return 0, fmt.Errorf("reading %s output: %w", c.Name, copyErr)
	}
	if waitErr != nil {
		return 0, fmt.Errorf("running %s on %s: %w", c.Name, path, waitErr)
	}
	c.logger.Debug("counted uncompressed size",
		zap.String("command", c.Name),
		zap.String("path", path),
		zap.Int64("size", n),
	)
	return n, nil
}

// Decoder counts in-process by decoding through a codec.
type Decoder struct {
	codec codec.Codec
}

// Compile-time check that Decoder implements Counter.
var _ Counter = (*Decoder)(nil)

// NewDecoder returns a Decoder using c.
func NewDecoder(c codec.Codec) *Decoder {
	return &Decoder{codec: c}
}

// Count decodes the whole file. Cancellation is checked between reads.
func (d *Decoder) Count(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r, err := d.codec.Reader(f)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	defer r.Close()

	n, err := io.Copy(io.Discard, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// Default returns the external "bzip2 -dc" counter when bzip2 is on PATH,
// and an in-process Decoder over fallback otherwise.
func Default(logger *zap.Logger, fallback codec.Codec) Counter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path, err := exec.LookPath("bzip2"); err == nil {
		return NewCommand(logger, path, "-dc")
	}
	logger.Debug("bzip2 not found on PATH, counting in-process")
	return NewDecoder(fallback)
}
