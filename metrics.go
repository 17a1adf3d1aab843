package mcckpt

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting checkpoint metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides one backed by client_golang.
type MetricsCollector interface {
	// RecordCheckpoint is called after each checkpoint write attempt.
	// bytes is the size of the written file (0 on failure).
	RecordCheckpoint(bytes int64, duration time.Duration, err error)

	// RecordLoad is called after each checkpoint restore.
	RecordLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCheckpoint(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CheckpointCount      atomic.Int64
	CheckpointErrors     atomic.Int64
	CheckpointBytes      atomic.Int64
	CheckpointTotalNanos atomic.Int64
	LoadCount            atomic.Int64
	LoadErrors           atomic.Int64
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(bytes int64, duration time.Duration, err error) {
	b.CheckpointCount.Add(1)
	b.CheckpointTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CheckpointErrors.Add(1)
		return
	}
	b.CheckpointBytes.Add(bytes)
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		CheckpointCount:  b.CheckpointCount.Load(),
		CheckpointErrors: b.CheckpointErrors.Load(),
		CheckpointBytes:  b.CheckpointBytes.Load(),
		LoadCount:        b.LoadCount.Load(),
		LoadErrors:       b.LoadErrors.Load(),
	}
	if stats.CheckpointCount > 0 {
		stats.CheckpointAvgNanos = b.CheckpointTotalNanos.Load() / stats.CheckpointCount
	}
	return stats
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CheckpointCount    int64
	CheckpointErrors   int64
	CheckpointBytes    int64
	CheckpointAvgNanos int64
	LoadCount          int64
	LoadErrors         int64
}
