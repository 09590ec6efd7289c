// Package lru implements a least-recently-used size memo strategy.
package lru

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/discochess/cfile/internal/sizememo"
)

// Compile-time check that Strategy implements sizememo.Strategy.
var _ sizememo.Strategy = (*Strategy)(nil)

// Strategy implements LRU eviction.
type Strategy struct {
	cache *lru.Cache[sizememo.Key, int64]
}

// New creates a new LRU strategy holding at most capacity entries.
func New(capacity int) (*Strategy, error) {
	c, err := lru.New[sizememo.Key, int64](capacity)
	if err != nil {
		return nil, err
	}
	return &Strategy{cache: c}, nil
}

// Get retrieves a size by key and marks it recently used.
func (s *Strategy) Get(key sizememo.Key) (int64, bool) {
	return s.cache.Get(key)
}

// Add stores a size, reporting whether an entry was evicted.
func (s *Strategy) Add(key sizememo.Key, size int64) bool {
	return s.cache.Add(key, size)
}

// Len returns the number of entries.
func (s *Strategy) Len() int {
	return s.cache.Len()
}
