// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics collects counters, gauges and histograms for CLI runs
// and persists them as JSON under the observability directory.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

// Sample thresholds below which high percentiles are not reported. Small
// sample sets make p95 and p99 meaningless.
const (
	minSamplesP95 = 20
	minSamplesP99 = 100
)

// Collector accumulates metrics in memory. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		counters:   map[string]float64{},
		gauges:     map[string]float64{},
		histograms: map[string][]float64{},
	}
}

// seriesKey builds a stable key from a metric name and its tags. Tags are
// sorted so the same tag set always produces the same series.
func seriesKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(",%s=%s", k, tags[k]))
	}
	return b.String()
}

// Inc adds delta to a counter.
func (c *Collector) Inc(name string, delta float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[seriesKey(name, tags)] += delta
}

// Set records the current value of a gauge.
func (c *Collector) Set(name string, value float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[seriesKey(name, tags)] = value
}

// Observe appends a value to a histogram series.
func (c *Collector) Observe(name string, value float64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := seriesKey(name, tags)
	c.histograms[key] = append(c.histograms[key], value)
}

// Timed observes the duration of fn in milliseconds.
func (c *Collector) Timed(name string, tags map[string]string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.Observe(name, float64(time.Since(start).Milliseconds()), tags)
	return err
}

// HistogramStats is the summarized view of one histogram series.
type HistogramStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95,omitempty"`
	P99   float64 `json:"p99,omitempty"`
}

// Snapshot is the persisted metrics document.
type Snapshot struct {
	UpdatedAt  string                    `json:"updated_at"`
	Counters   map[string]float64        `json:"counters"`
	Gauges     map[string]float64        `json:"gauges"`
	Histograms map[string]HistogramStats `json:"histograms"`
}

// Snapshot summarizes the collector's current state.
func (c *Collector) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{
		UpdatedAt:  time.Now().Format(time.RFC3339),
		Counters:   make(map[string]float64, len(c.counters)),
		Gauges:     make(map[string]float64, len(c.gauges)),
		Histograms: make(map[string]HistogramStats, len(c.histograms)),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, v := range c.gauges {
		snap.Gauges[k] = v
	}
	for k, values := range c.histograms {
		snap.Histograms[k] = summarize(values)
	}
	return snap
}

func summarize(values []float64) HistogramStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	stats := HistogramStats{Count: len(sorted)}
	if len(sorted) == 0 {
		return stats
	}

	stats.Min = sorted[0]
	stats.Max = sorted[len(sorted)-1]
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	stats.Mean = sum / float64(len(sorted))
	stats.P50 = percentile(sorted, 0.50)
	if len(sorted) >= minSamplesP95 {
		stats.P95 = percentile(sorted, 0.95)
	}
	if len(sorted) >= minSamplesP99 {
		stats.P99 = percentile(sorted, 0.99)
	}
	return stats
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// metricsPath is where Flush persists the snapshot.
func metricsPath(obsDir string) string {
	return filepath.Join(obsDir, "metrics.json")
}

// Flush merges the collector into the persisted snapshot: counters add,
// gauges overwrite, histogram stats are replaced by the latest run.
func (c *Collector) Flush(obsDir string) error {
	current := c.Snapshot()

	existing, err := Read(obsDir)
	if err != nil {
		return err
	}
	if existing != nil {
		for k, v := range existing.Counters {
			if _, ok := current.Counters[k]; ok {
				current.Counters[k] += v
			} else {
				current.Counters[k] = v
			}
		}
		for k, v := range existing.Gauges {
			if _, ok := current.Gauges[k]; !ok {
				current.Gauges[k] = v
			}
		}
		for k, v := range existing.Histograms {
			if _, ok := current.Histograms[k]; !ok {
				current.Histograms[k] = v
			}
		}
	}

	return projection.AtomicWriteJSON(metricsPath(obsDir), current)
}

// Read loads the persisted snapshot, or nil when none exists.
func Read(obsDir string) (*Snapshot, error) {
	data, err := os.ReadFile(metricsPath(obsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metrics: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing metrics: %w", err)
	}
	return &snap, nil
}
