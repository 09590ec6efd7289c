// Package sizecache persists computed uncompressed sizes in an extended
// attribute on the compressed file itself, so the expensive count is paid
// once per file version.
package sizecache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// AttrName is the extended attribute holding the record.
const AttrName = "user.cfile_uncompressed_size"

// recordSize is the encoded length: two host-order 64-bit integers.
const recordSize = 16

var (
	// ErrUnsupported is returned on platforms or filesystems without
	// extended attributes.
	ErrUnsupported = errors.New("sizecache: extended attributes not supported")

	// ErrNotFound is returned when a file carries no record.
	ErrNotFound = errors.New("sizecache: no record")
)

// Record is a cached size and the time it was computed.
type Record struct {
	Size       int64
	ComputedAt time.Time
}

// MarshalBinary encodes the record as size then Unix seconds, both in host
// byte order. Records are not portable between machines of different
// endianness.
func (r Record) MarshalBinary() ([]byte, error) {
	b := make([]byte, recordSize)
	binary.NativeEndian.PutUint64(b[0:8], uint64(r.Size))
	binary.NativeEndian.PutUint64(b[8:16], uint64(r.ComputedAt.Unix()))
	return b, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) != recordSize {
		return fmt.Errorf("sizecache: record is %d bytes, want %d", len(b), recordSize)
	}
	r.Size = int64(binary.NativeEndian.Uint64(b[0:8]))
	r.ComputedAt = time.Unix(int64(binary.NativeEndian.Uint64(b[8:16])), 0)
	return nil
}

// Fresh reports whether the record is still valid for a file last modified
// at mtime. A record is valid when the file has not changed since the
// record was computed.
func (r Record) Fresh(mtime time.Time) bool {
	return mtime.Unix() <= r.ComputedAt.Unix()
}

// Cache reads and writes size records.
type Cache struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option interface {
	apply(*Cache)
}

type optionFunc func(*Cache)

func (f optionFunc) apply(c *Cache) { f(c) }

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *Cache) {
		c.logger = logger
	})
}

// WithClock sets the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *Cache) {
		c.now = now
	})
}

// New returns a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c
}

// Lookup returns the cached size of path. found is false when there is no
// record, the record is malformed or stale, or attributes are unavailable.
// A cached size of zero is a valid hit.
func (c *Cache) Lookup(path string) (size int64, found bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.logger.Debug("size cache stat failed", zap.String("path", path), zap.Error(err))
		return 0, false
	}

	raw, err := getAttr(path, AttrName)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Debug("size cache read failed", zap.String("path", path), zap.Error(err))
		}
		return 0, false
	}

	var rec Record
	if err := rec.UnmarshalBinary(raw); err != nil {
		c.logger.Debug("size cache record malformed", zap.String("path", path), zap.Error(err))
		return 0, false
	}
	if !rec.Fresh(info.ModTime()) {
		c.logger.Debug("size cache record stale",
			zap.String("path", path),
			zap.Time("computed_at", rec.ComputedAt),
			zap.Time("mtime", info.ModTime()),
		)
		return 0, false
	}
	return rec.Size, true
}

// Store records size for path, stamped with the current time. Callers treat
// failure as non-fatal; the error is returned for logging.
func (c *Cache) Store(path string, size int64) error {
	raw, _ := Record{Size: size, ComputedAt: c.now()}.MarshalBinary()
	if err := setAttr(path, AttrName, raw); err != nil {
		c.logger.Debug("size cache write failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("storing size record for %s: %w", path, err)
	}
	return nil
}
