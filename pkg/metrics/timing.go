// Package metrics records in-process timings for the timeline engine.
//
// Collection is on by default and can be switched off with SWIMLANE_METRICS=0.
// All recording is lock-free; the serve command exports the snapshot as
// Prometheus gauges.
//
//	func buildLayout() {
//	    defer metrics.Timer(metrics.LayoutCompute)()
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("SWIMLANE_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric accumulates count, total, min and max for one named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means unset
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a consistent-enough snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Engine and I/O timings.
var (
	TimestampResolve = newTimingMetric("timestamp_resolve")
	WeekBucketing    = newTimingMetric("week_bucketing")
	GraphBuild       = newTimingMetric("graph_build")
	FocusFlags       = newTimingMetric("focus_flags")
	LayoutCompute    = newTimingMetric("layout_compute")
	DataLoad         = newTimingMetric("data_load")
	UIRender         = newTimingMetric("ui_render")
	SnapshotExport   = newTimingMetric("snapshot_export")
)

// All returns every registered timing metric.
func All() []*TimingMetric {
	return []*TimingMetric{
		TimestampResolve,
		WeekBucketing,
		GraphBuild,
		FocusFlags,
		LayoutCompute,
		DataLoad,
		UIRender,
		SnapshotExport,
	}
}

// ResetAll resets every timing metric.
func ResetAll() {
	for _, m := range All() {
		m.Reset()
	}
}

// AllStats returns stats for the metrics that have data.
func AllStats() []TimingStats {
	ms := All()
	stats := make([]TimingStats, 0, len(ms))
	for _, m := range ms {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
