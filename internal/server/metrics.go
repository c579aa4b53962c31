package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

const namespace = "swimlane"

// requestMetrics counts and times API requests per route.
type requestMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics() *requestMetrics {
	return &requestMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by route and status code",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency by route",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"route"}),
	}
}

func (m *requestMetrics) observe(route string, status int, d time.Duration) {
	m.total.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *requestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.total.Describe(ch)
	m.duration.Describe(ch)
}

func (m *requestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.total.Collect(ch)
	m.duration.Collect(ch)
}

// engineCollector reports the loaded data set and the in-process timing
// registry at scrape time.
type engineCollector struct {
	engine *timeline.Engine

	initiatives *prometheus.Desc
	events      *prometheus.Desc
	loadedAt    *prometheus.Desc
	timingCount *prometheus.Desc
	timingTotal *prometheus.Desc
	timingAvg   *prometheus.Desc
	timingMax   *prometheus.Desc
}

func newEngineCollector(e *timeline.Engine) *engineCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &engineCollector{
		engine:      e,
		initiatives: desc("initiatives", "Loaded initiatives"),
		events:      desc("events", "Loaded events per initiative", "initiative"),
		loadedAt:    desc("data_loaded_timestamp_seconds", "Unix time of the last successful load"),
		timingCount: desc("timing_count", "Timed operations recorded", "operation"),
		timingTotal: desc("timing_seconds_total", "Total time spent per operation", "operation"),
		timingAvg:   desc("timing_avg_seconds", "Mean time per operation", "operation"),
		timingMax:   desc("timing_max_seconds", "Slowest recorded operation", "operation"),
	}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.initiatives, c.events, c.loadedAt, c.timingCount, c.timingTotal, c.timingAvg, c.timingMax} {
		ch <- d
	}
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	inits := c.engine.Initiatives()
	ch <- prometheus.MustNewConstMetric(c.initiatives, prometheus.GaugeValue, float64(len(inits)))
	for _, in := range inits {
		evs, _ := c.engine.Events(in.ID)
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.GaugeValue, float64(len(evs)), in.ID)
	}
	if at := c.engine.LoadedAt(); !at.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.loadedAt, prometheus.GaugeValue, float64(at.UnixNano())/1e9)
	}

	for _, s := range metrics.AllStats() {
		ch <- prometheus.MustNewConstMetric(c.timingCount, prometheus.CounterValue, float64(s.Count), s.Name)
		ch <- prometheus.MustNewConstMetric(c.timingTotal, prometheus.CounterValue, s.TotalMs/1e3, s.Name)
		ch <- prometheus.MustNewConstMetric(c.timingAvg, prometheus.GaugeValue, s.AvgMs/1e3, s.Name)
		ch <- prometheus.MustNewConstMetric(c.timingMax, prometheus.GaugeValue, s.MaxMs/1e3, s.Name)
	}
}
