package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesKeySortsTags(t *testing.T) {
	a := seriesKey("requests", map[string]string{"b": "2", "a": "1"})
	b := seriesKey("requests", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "requests,a=1,b=2", a)
	assert.Equal(t, "requests", seriesKey("requests", nil))
}

func TestCountersAndGauges(t *testing.T) {
	c := NewCollector()
	c.Inc("commands", 1, map[string]string{"name": "parse"})
	c.Inc("commands", 2, map[string]string{"name": "parse"})
	c.Set("tasks_pending", 7, nil)

	snap := c.Snapshot()
	assert.Equal(t, 3.0, snap.Counters["commands,name=parse"])
	assert.Equal(t, 7.0, snap.Gauges["tasks_pending"])
}

func TestHistogramPercentileGating(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 10; i++ {
		c.Observe("small", float64(i), nil)
	}
	for i := 1; i <= 50; i++ {
		c.Observe("medium", float64(i), nil)
	}
	for i := 1; i <= 200; i++ {
		c.Observe("large", float64(i), nil)
	}

	snap := c.Snapshot()

	small := snap.Histograms["small"]
	assert.Equal(t, 10, small.Count)
	assert.Equal(t, 5.0, small.P50)
	// Too few samples for high percentiles.
	assert.Zero(t, small.P95)
	assert.Zero(t, small.P99)

	medium := snap.Histograms["medium"]
	assert.NotZero(t, medium.P95)
	assert.Zero(t, medium.P99)

	large := snap.Histograms["large"]
	assert.Equal(t, 1.0, large.Min)
	assert.Equal(t, 200.0, large.Max)
	assert.NotZero(t, large.P95)
	assert.NotZero(t, large.P99)
	assert.GreaterOrEqual(t, large.P99, large.P95)
}

func TestTimedRecordsDuration(t *testing.T) {
	c := NewCollector()
	sentinel := errors.New("boom")
	err := c.Timed("op_duration_ms", nil, func() error { return sentinel })
	assert.Equal(t, sentinel, err)
	assert.Equal(t, 1, c.Snapshot().Histograms["op_duration_ms"].Count)
}

func TestFlushMergesCounters(t *testing.T) {
	dir := t.TempDir()

	first := NewCollector()
	first.Inc("runs", 1, nil)
	first.Set("pending", 5, nil)
	require.NoError(t, first.Flush(dir))

	second := NewCollector()
	second.Inc("runs", 2, nil)
	second.Set("pending", 3, nil)
	require.NoError(t, second.Flush(dir))

	snap, err := Read(dir)
	require.NoError(t, err)
	require.NotNil(t, snap)
	// Counters accumulate across flushes, gauges take the latest value.
	assert.Equal(t, 3.0, snap.Counters["runs"])
	assert.Equal(t, 3.0, snap.Gauges["pending"])
}

func TestReadMissingFile(t *testing.T) {
	snap, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, snap)
}
