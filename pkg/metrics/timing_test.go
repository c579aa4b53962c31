package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("expected count 2, got %d", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 || s.TotalMs != 6 {
		t.Errorf("unexpected stats %+v", s)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Errorf("expected reset metric, got %+v", m.Stats())
	}
}

func TestDisabledSkipsRecording(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Second)
	if m.Count() != 0 {
		t.Errorf("expected no recording when disabled, got %d", m.Count())
	}
}

func TestAllStatsOnlyIncludesUsedMetrics(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()

	LayoutCompute.Record(time.Millisecond)
	stats := AllStats()
	if len(stats) != 1 || stats[0].Name != "layout_compute" {
		t.Errorf("expected only layout_compute, got %+v", stats)
	}
}
