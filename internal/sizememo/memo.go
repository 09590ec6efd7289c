// Package sizememo remembers uncompressed sizes in memory for the lifetime
// of an arena, so repeated size queries over an unchanged file are free.
package sizememo

import (
	"io/fs"
	"sync/atomic"

	"github.com/discochess/cfile/internal/stats"
)

// Key identifies one version of a file. A file rewritten in place gets a
// new modification time or length and therefore a new key.
type Key struct {
	Path    string
	ModTime int64
	Length  int64
}

// KeyFor builds the key for path from its stat result.
func KeyFor(path string, info fs.FileInfo) Key {
	return Key{
		Path:    path,
		ModTime: info.ModTime().UnixNano(),
		Length:  info.Size(),
	}
}

// Strategy is the eviction policy holding the entries.
type Strategy interface {
	Get(key Key) (int64, bool)
	Add(key Key, size int64) bool
	Len() int
}

// Stats contains memo statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int // Current number of entries
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Memo is a thread-safe size memo.
type Memo struct {
	strategy  Strategy
	collector stats.Collector

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a memo over the given eviction strategy.
// The collector is optional; if nil, a no-op collector is used.
func New(strategy Strategy, collector stats.Collector) *Memo {
	if collector == nil {
		collector = stats.NewNoop()
	}
	return &Memo{
		strategy:  strategy,
		collector: collector,
	}
}

// Get returns the remembered size for key.
func (m *Memo) Get(key Key) (int64, bool) {
	size, ok := m.strategy.Get(key)
	if ok {
		m.hits.Add(1)
		m.collector.IncCounter(stats.MetricSizeCacheHits, 1)
		return size, true
	}
	m.misses.Add(1)
	m.collector.IncCounter(stats.MetricSizeCacheMisses, 1)
	return 0, false
}

// Set remembers size for key.
func (m *Memo) Set(key Key, size int64) {
	m.strategy.Add(key, size)
	m.collector.SetGauge(stats.MetricSizeMemoSize, int64(m.strategy.Len()))
}

// Stats returns current statistics.
func (m *Memo) Stats() Stats {
	return Stats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Size:   m.strategy.Len(),
	}
}
