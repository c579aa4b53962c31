// Package layout computes the continuous timeline geometry. Event i of a
// time-sorted initiative sits at x(i) = StartOffset + i*BaseSpread*zoom; every
// renderer consumes these positions instead of measuring its own output.
package layout

import (
	"math"
	"sort"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timestamp"
)

// Config holds the layout constants, in abstract pixels.
type Config struct {
	StartOffset float64 `yaml:"start_offset" json:"start_offset"`
	BaseSpread  float64 `yaml:"base_spread" json:"base_spread"`
	ItemWidth   float64 `yaml:"item_width" json:"item_width"`
	Padding     float64 `yaml:"padding" json:"padding"`
	ColumnWidth float64 `yaml:"column_width" json:"column_width"`

	MinZoom  float64 `yaml:"min_zoom" json:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom" json:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step" json:"zoom_step"`

	// CurveHeightFactor scales a connection curve's height by the horizontal
	// distance it spans; CurveMaxHeight caps it.
	CurveHeightFactor float64 `yaml:"curve_height_factor" json:"curve_height_factor"`
	CurveMaxHeight    float64 `yaml:"curve_max_height" json:"curve_max_height"`
}

// DefaultConfig returns the stock layout constants.
func DefaultConfig() Config {
	return Config{
		StartOffset:       100,
		BaseSpread:        280,
		ItemWidth:         260,
		Padding:           100,
		ColumnWidth:       280,
		MinZoom:           0.5,
		MaxZoom:           5,
		ZoomStep:          1.2,
		CurveHeightFactor: 0.35,
		CurveMaxHeight:    160,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&c.StartOffset, d.StartOffset)
	fill(&c.BaseSpread, d.BaseSpread)
	fill(&c.ItemWidth, d.ItemWidth)
	fill(&c.Padding, d.Padding)
	fill(&c.ColumnWidth, d.ColumnWidth)
	fill(&c.MinZoom, d.MinZoom)
	fill(&c.MaxZoom, d.MaxZoom)
	fill(&c.ZoomStep, d.ZoomStep)
	fill(&c.CurveHeightFactor, d.CurveHeightFactor)
	fill(&c.CurveMaxHeight, d.CurveMaxHeight)
	return c
}

// Bounds is a closed horizontal range.
type Bounds struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Width returns Right-Left.
func (b Bounds) Width() float64 { return b.Right - b.Left }

// Mid returns the midpoint of b.
func (b Bounds) Mid() float64 { return (b.Left + b.Right) / 2 }

// Clamp restricts v to b. NaN maps to Left.
func (b Bounds) Clamp(v float64) float64 {
	return clamp(v, b.Left, b.Right)
}

// Engine evaluates the layout for one Config. It holds no per-session state.
type Engine struct {
	cfg Config
}

// New returns an Engine; zero-valued fields of cfg take their defaults.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// X returns the left edge of event i at zoom.
func (e *Engine) X(i int, zoom float64) float64 {
	return e.cfg.StartOffset + float64(i)*(e.cfg.BaseSpread*e.ClampZoom(zoom))
}

// Positions maps each event id of a sorted slice to its x. A duplicate id
// keeps its first position.
func (e *Engine) Positions(sorted []model.Event, zoom float64) map[string]float64 {
	defer metrics.Timer(metrics.LayoutCompute)()

	out := make(map[string]float64, len(sorted))
	for i, ev := range sorted {
		if _, ok := out[ev.ID]; ok {
			continue
		}
		out[ev.ID] = e.X(i, zoom)
	}
	return out
}

// ContentBounds returns [x(0), x(n-1)+ItemWidth]. ok is false for n == 0.
func (e *Engine) ContentBounds(n int, zoom float64) (b Bounds, ok bool) {
	if n <= 0 {
		return Bounds{}, false
	}
	return Bounds{Left: e.X(0, zoom), Right: e.X(n-1, zoom) + e.cfg.ItemWidth}, true
}

// DragBounds returns the pan offsets that keep at least Padding of content
// on screen at either side. Screen x is content x + pan. Without content or
// a measured container the result is the degenerate {0, 0}.
func (e *Engine) DragBounds(n int, zoom, containerWidth float64) Bounds {
	content, ok := e.ContentBounds(n, zoom)
	if !ok || containerWidth <= 0 {
		return Bounds{}
	}
	b := Bounds{
		Left:  e.cfg.Padding - content.Right,
		Right: containerWidth - e.cfg.Padding - content.Left,
	}
	if b.Left > b.Right {
		mid := b.Mid()
		b = Bounds{Left: mid, Right: mid}
	}
	return b
}

// CenterPan returns the pan offset that centers the content midpoint in the
// container, clamped to DragBounds.
func (e *Engine) CenterPan(n int, zoom, containerWidth float64) float64 {
	content, ok := e.ContentBounds(n, zoom)
	if !ok || containerWidth <= 0 {
		return 0
	}
	return e.DragBounds(n, zoom, containerWidth).Clamp(containerWidth/2 - content.Mid())
}

// PanToIndex returns the pan offset centering column i in the container,
// clamped to DragBounds.
func (e *Engine) PanToIndex(i, n int, zoom, containerWidth float64) float64 {
	if n <= 0 || containerWidth <= 0 {
		return 0
	}
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	center := e.X(i, zoom) + e.cfg.ColumnWidth/2
	return e.DragBounds(n, zoom, containerWidth).Clamp(containerWidth/2 - center)
}

// ClampZoom restricts z to [MinZoom, MaxZoom]. NaN maps to MinZoom.
func (e *Engine) ClampZoom(z float64) float64 {
	return clamp(z, e.cfg.MinZoom, e.cfg.MaxZoom)
}

// ZoomIn multiplies z by ZoomStep and clamps.
func (e *Engine) ZoomIn(z float64) float64 {
	return e.ClampZoom(z * e.cfg.ZoomStep)
}

// ZoomOut divides z by ZoomStep and clamps.
func (e *Engine) ZoomOut(z float64) float64 {
	return e.ClampZoom(z / e.cfg.ZoomStep)
}

// ZoomIn applies Engine.ZoomIn with the default configuration.
func ZoomIn(z float64) float64 { return defaultEngine.ZoomIn(z) }

// ZoomOut applies Engine.ZoomOut with the default configuration.
func ZoomOut(z float64) float64 { return defaultEngine.ZoomOut(z) }

var defaultEngine = New(DefaultConfig())

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Item is an event with its resolved instant.
type Item struct {
	Event model.Event
	Time  time.Time
}

// Sort resolves every event's timestamp and returns the items in ascending
// time order. Equal instants keep input order.
func Sort(r timestamp.Resolver, events []model.Event, contextYear int, now time.Time) []Item {
	items := make([]Item, len(events))
	for i, ev := range events {
		items[i] = Item{Event: ev, Time: r.ResolveEvent(ev, contextYear, now)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Time.Before(items[j].Time)
	})
	return items
}

// Events strips the resolved times from items.
func Events(items []Item) []model.Event {
	out := make([]model.Event, len(items))
	for i, it := range items {
		out[i] = it.Event
	}
	return out
}

// NearestIndex returns the index of the item closest to t, preferring the
// earlier one on a tie, or -1 when items is empty.
func NearestIndex(items []Item, t time.Time) int {
	best := -1
	var bestDist time.Duration
	for i, it := range items {
		d := it.Time.Sub(t)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
