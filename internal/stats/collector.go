// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Handle metrics.
	MetricOpens        = "cfile_opens_total"
	MetricOpenErrors   = "cfile_open_errors_total"
	MetricBytesRead    = "cfile_bytes_read_total"
	MetricBytesWritten = "cfile_bytes_written_total"
	MetricDecodeErrors = "cfile_decode_errors_total"

	// Size oracle metrics.
	MetricSizeCacheHits   = "cfile_size_cache_hits_total"
	MetricSizeCacheMisses = "cfile_size_cache_misses_total"
	MetricSizeMemoSize    = "cfile_size_memo_size"
	MetricSizeSeconds     = "cfile_size_seconds"
)

// Help returns the description registered for a known metric, or the name
// itself for anything else.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

var help = map[string]string{
	MetricOpens:           "Files opened, by any backend.",
	MetricOpenErrors:      "Open calls that failed.",
	MetricBytesRead:       "Uncompressed bytes returned to callers.",
	MetricBytesWritten:    "Uncompressed bytes accepted from callers.",
	MetricDecodeErrors:    "Reads that ended early on corrupt input.",
	MetricSizeCacheHits:   "Size queries answered from a cache.",
	MetricSizeCacheMisses: "Size queries that had to compute the size.",
	MetricSizeMemoSize:    "Entries held in the in-memory size memo.",
	MetricSizeSeconds:     "Time spent answering size queries.",
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
