package prommetrics_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bunchfile"
	"github.com/hupe1980/bunchfile/prommetrics"
)

var _ bunchfile.MetricsCollector = (*prommetrics.Collector)(nil)

type header struct {
	Version int32
}

type record struct {
	Key   int64
	Value float64
}

// value reads the current value of a counter or gauge.
func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	switch {
	case pb.Counter != nil:
		return pb.GetCounter().GetValue()
	case pb.Gauge != nil:
		return pb.GetGauge().GetValue()
	}
	t.Fatalf("metric %s is neither counter nor gauge", m.Desc())
	return 0
}

func histogram(t *testing.T, reg *prometheus.Registry, name string) *dto.Histogram {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetHistogram()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prommetrics.New(reg, "test")
	boom := errors.New("boom")

	c.RecordAppend(0, nil)
	c.RecordAppend(0, boom)
	c.RecordFlush(4, 64, 20, 0)
	c.RecordBlockLoad(true, 0, nil)
	c.RecordBlockLoad(false, 0, nil)
	c.RecordBlockLoad(false, 0, boom)
	c.RecordReindex(12, 0, nil)
	c.RecordSearch(true, 3, nil)
	c.RecordSearch(false, 4, nil)

	assert.Equal(t, 1.0, value(t, c.AppendsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, value(t, c.AppendsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, value(t, c.FlushesTotal))
	assert.Equal(t, 4.0, value(t, c.FlushedRecordsTotal))
	assert.Equal(t, 64.0, value(t, c.FlushedRawBytes))
	assert.Equal(t, 20.0, value(t, c.FlushedStoredBytes))
	assert.Equal(t, 1.0, value(t, c.BlockLoadsTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, value(t, c.BlockLoadsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, value(t, c.BlockLoadsTotal.WithLabelValues("error")))
	assert.Equal(t, 12.0, value(t, c.ReindexRecords))
	assert.Equal(t, 1.0, value(t, c.SearchesTotal.WithLabelValues("found")))
	assert.Equal(t, 1.0, value(t, c.SearchesTotal.WithLabelValues("not_found")))

	probes := histogram(t, reg, "test_bunchfile_search_probes")
	assert.Equal(t, uint64(2), probes.GetSampleCount())
	assert.Equal(t, 7.0, probes.GetSampleSum())

	loads := histogram(t, reg, "test_bunchfile_block_load_duration_seconds")
	assert.Equal(t, uint64(1), loads.GetSampleCount())
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	prommetrics.New(reg, "dup")
	assert.Panics(t, func() { prommetrics.New(reg, "dup") })
}

func TestCollector_WithStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prommetrics.New(reg, "store")

	path := filepath.Join(t.TempDir(), "metrics.bin")
	s, err := bunchfile.Open[header, record](path,
		bunchfile.WithBunchSize(8),
		bunchfile.WithMetricsCollector(c),
	)
	require.NoError(t, err)
	defer s.Close()

	for i := int64(0); i < 20; i++ {
		require.NoError(t, s.Append(record{Key: 20 - i, Value: float64(i)}))
	}
	require.NoError(t, s.Reindex(func(a, b record) bool { return a.Key < b.Key }))

	_, ok, err := s.Find(record{Key: 5})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 20.0, value(t, c.AppendsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, value(t, c.ReindexTotal.WithLabelValues("success")))
	assert.Equal(t, 20.0, value(t, c.ReindexRecords))
	assert.Equal(t, 1.0, value(t, c.SearchesTotal.WithLabelValues("found")))
	assert.Positive(t, value(t, c.FlushesTotal))
}
