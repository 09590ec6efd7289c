package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/discochess/cfile/internal/stats"
)

func TestCollector_LogsUpdates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core))

	c.IncCounter(stats.MetricOpens, 2)
	c.SetGauge(stats.MetricSizeMemoSize, 9)
	c.ObserveHistogram(stats.MetricSizeSeconds, 0.25)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	wantMessages := []string{"counter", "gauge", "histogram"}
	for i, e := range entries {
		if e.Message != wantMessages[i] {
			t.Errorf("entry %d message = %q, want %q", i, e.Message, wantMessages[i])
		}
		if e.LoggerName != "stats" {
			t.Errorf("entry %d logger = %q, want %q", i, e.LoggerName, "stats")
		}
	}
	if got := entries[0].ContextMap()["metric"]; got != stats.MetricOpens {
		t.Errorf("metric field = %v, want %q", got, stats.MetricOpens)
	}
}

func TestCollector_Level(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	New(zap.New(core)).IncCounter(stats.MetricOpens, 1)
	if logs.Len() != 0 {
		t.Errorf("debug collector logged %d entries at info, want 0", logs.Len())
	}

	NewLevel(zap.New(core), zapcore.InfoLevel).IncCounter(stats.MetricOpens, 1)
	if logs.Len() != 1 {
		t.Errorf("info collector logged %d entries, want 1", logs.Len())
	}
}

func TestNew_NilLogger(t *testing.T) {
	c := New(nil)
	c.IncCounter(stats.MetricOpens, 1)
}
