// Package prommetrics exports bunchfile store metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	s, err := bunchfile.Open[Header, Item]("items.bin",
//	    bunchfile.WithMetricsCollector(prommetrics.New(reg, "myapp")),
//	)
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements bunchfile.MetricsCollector on Prometheus metrics.
type Collector struct {
	AppendsTotal        *prometheus.CounterVec
	AppendDuration      prometheus.Histogram
	FlushesTotal        prometheus.Counter
	FlushedRecordsTotal prometheus.Counter
	FlushedRawBytes     prometheus.Counter
	FlushedStoredBytes  prometheus.Counter
	FlushDuration       prometheus.Histogram
	BlockLoadsTotal     *prometheus.CounterVec
	BlockLoadDuration   prometheus.Histogram
	ReindexTotal        *prometheus.CounterVec
	ReindexDuration     prometheus.Histogram
	ReindexRecords      prometheus.Gauge
	SearchesTotal       *prometheus.CounterVec
	SearchProbes        prometheus.Histogram
}

// New registers the store metrics with reg under namespace. If reg is nil the
// default registerer is used.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		AppendsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_appends_total",
				Help:      "Total number of record appends",
			},
			[]string{"status"},
		),
		AppendDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bunchfile_append_duration_seconds",
				Help:      "Append duration in seconds, including block flushes",
				Buckets:   []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
		),
		FlushesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_flushes_total",
				Help:      "Total number of blocks written to disk",
			},
		),
		FlushedRecordsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_flushed_records_total",
				Help:      "Total number of records in flushed blocks",
			},
		),
		FlushedRawBytes: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_flushed_raw_bytes_total",
				Help:      "Decompressed bytes of flushed blocks",
			},
		),
		FlushedStoredBytes: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_flushed_stored_bytes_total",
				Help:      "Payload bytes written for flushed blocks",
			},
		),
		FlushDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bunchfile_flush_duration_seconds",
				Help:      "Block compress and write duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		),
		BlockLoadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_block_loads_total",
				Help:      "Total number of block lookups by the read path",
			},
			[]string{"result"}, // hit, miss, error
		),
		BlockLoadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bunchfile_block_load_duration_seconds",
				Help:      "Block read and decompress duration in seconds (cache misses)",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
		),
		ReindexTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_reindex_total",
				Help:      "Total number of reindex operations",
			},
			[]string{"status"},
		),
		ReindexDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bunchfile_reindex_duration_seconds",
				Help:      "Reindex duration in seconds",
				Buckets:   []float64{0.001, 0.01, 0.1, 1.0, 10.0},
			},
		),
		ReindexRecords: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "bunchfile_reindex_records",
				Help:      "Records rewritten by the last reindex",
			},
		),
		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bunchfile_searches_total",
				Help:      "Total number of binary searches",
			},
			[]string{"result"}, // found, not_found, error
		),
		SearchProbes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bunchfile_search_probes",
				Help:      "Records read per binary search",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAppend implements bunchfile.MetricsCollector.
func (c *Collector) RecordAppend(duration time.Duration, err error) {
	c.AppendsTotal.WithLabelValues(status(err)).Inc()
	c.AppendDuration.Observe(duration.Seconds())
}

// RecordFlush implements bunchfile.MetricsCollector.
func (c *Collector) RecordFlush(records, rawBytes, storedBytes int, duration time.Duration) {
	c.FlushesTotal.Inc()
	c.FlushedRecordsTotal.Add(float64(records))
	c.FlushedRawBytes.Add(float64(rawBytes))
	c.FlushedStoredBytes.Add(float64(storedBytes))
	c.FlushDuration.Observe(duration.Seconds())
}

// RecordBlockLoad implements bunchfile.MetricsCollector.
func (c *Collector) RecordBlockLoad(hit bool, duration time.Duration, err error) {
	switch {
	case err != nil:
		c.BlockLoadsTotal.WithLabelValues("error").Inc()
	case hit:
		c.BlockLoadsTotal.WithLabelValues("hit").Inc()
	default:
		c.BlockLoadsTotal.WithLabelValues("miss").Inc()
		c.BlockLoadDuration.Observe(duration.Seconds())
	}
}

// RecordReindex implements bunchfile.MetricsCollector.
func (c *Collector) RecordReindex(records int, duration time.Duration, err error) {
	c.ReindexTotal.WithLabelValues(status(err)).Inc()
	c.ReindexDuration.Observe(duration.Seconds())
	if err == nil {
		c.ReindexRecords.Set(float64(records))
	}
}

// RecordSearch implements bunchfile.MetricsCollector.
func (c *Collector) RecordSearch(found bool, probes int, err error) {
	switch {
	case err != nil:
		c.SearchesTotal.WithLabelValues("error").Inc()
	case found:
		c.SearchesTotal.WithLabelValues("found").Inc()
	default:
		c.SearchesTotal.WithLabelValues("not_found").Inc()
	}
	c.SearchProbes.Observe(float64(probes))
}
