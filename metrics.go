package bunchfile

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAppend is called after each append.
	RecordAppend(duration time.Duration, err error)

	// RecordFlush is called after a block is written to disk.
	// rawBytes is the decompressed size, storedBytes the payload written.
	RecordFlush(records, rawBytes, storedBytes int, duration time.Duration)

	// RecordBlockLoad is called whenever a read needs a block.
	// hit reports whether the block was already cached.
	RecordBlockLoad(hit bool, duration time.Duration, err error)

	// RecordReindex is called after each reindex.
	RecordReindex(records int, duration time.Duration, err error)

	// RecordSearch is called after each binary search.
	// probes is the number of records read.
	RecordSearch(found bool, probes int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAppend(time.Duration, error)          {}
func (NoopMetricsCollector) RecordFlush(int, int, int, time.Duration)   {}
func (NoopMetricsCollector) RecordBlockLoad(bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordReindex(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSearch(bool, int, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AppendCount      atomic.Int64
	AppendErrors     atomic.Int64
	FlushCount       atomic.Int64
	FlushRecords     atomic.Int64
	FlushRawBytes    atomic.Int64
	FlushStoredBytes atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	LoadErrors       atomic.Int64
	ReindexCount     atomic.Int64
	ReindexErrors    atomic.Int64
	SearchCount      atomic.Int64
	SearchHits       atomic.Int64
	SearchProbes     atomic.Int64
	SearchErrors     atomic.Int64
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(duration time.Duration, err error) {
	b.AppendCount.Add(1)
	if err != nil {
		b.AppendErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(records, rawBytes, storedBytes int, duration time.Duration) {
	b.FlushCount.Add(1)
	b.FlushRecords.Add(int64(records))
	b.FlushRawBytes.Add(int64(rawBytes))
	b.FlushStoredBytes.Add(int64(storedBytes))
}

// RecordBlockLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockLoad(hit bool, duration time.Duration, err error) {
	switch {
	case err != nil:
		b.LoadErrors.Add(1)
	case hit:
		b.CacheHits.Add(1)
	default:
		b.CacheMisses.Add(1)
	}
}

// RecordReindex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReindex(records int, duration time.Duration, err error) {
	b.ReindexCount.Add(1)
	if err != nil {
		b.ReindexErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(found bool, probes int, err error) {
	b.SearchCount.Add(1)
	b.SearchProbes.Add(int64(probes))
	if err != nil {
		b.SearchErrors.Add(1)
	} else if found {
		b.SearchHits.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AppendCount:      b.AppendCount.Load(),
		AppendErrors:     b.AppendErrors.Load(),
		FlushCount:       b.FlushCount.Load(),
		FlushRecords:     b.FlushRecords.Load(),
		FlushRawBytes:    b.FlushRawBytes.Load(),
		FlushStoredBytes: b.FlushStoredBytes.Load(),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		LoadErrors:       b.LoadErrors.Load(),
		ReindexCount:     b.ReindexCount.Load(),
		ReindexErrors:    b.ReindexErrors.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchHits:       b.SearchHits.Load(),
		SearchProbes:     b.SearchProbes.Load(),
		SearchErrors:     b.SearchErrors.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AppendCount      int64
	AppendErrors     int64
	FlushCount       int64
	FlushRecords     int64
	FlushRawBytes    int64
	FlushStoredBytes int64
	CacheHits        int64
	CacheMisses      int64
	LoadErrors       int64
	ReindexCount     int64
	ReindexErrors    int64
	SearchCount      int64
	SearchHits       int64
	SearchProbes     int64
	SearchErrors     int64
}

// CompressionRatio returns raw bytes per stored byte over all flushes, or 0
// when nothing was flushed.
func (s BasicMetricsStats) CompressionRatio() float64 {
	if s.FlushStoredBytes == 0 {
		return 0
	}
	return float64(s.FlushRawBytes) / float64(s.FlushStoredBytes)
}
