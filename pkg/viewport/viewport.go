// Package viewport owns the zoom factor and pan offset of a continuous
// timeline and keeps them within the layout's bounds.
package viewport

import (
	"math"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/layout"
)

// Direction selects a zoom step.
type Direction int

const (
	In Direction = iota + 1
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return "none"
	}
}

// DefaultWheelPanFactor converts wheel delta to pan pixels.
const DefaultWheelPanFactor = 1.5

// Controller is the single writer of zoom and pan for one timeline. Every
// mutator reports whether the visible state changed.
type Controller struct {
	engine         *layout.Engine
	zoom           float64
	initialZoom    float64
	pan            float64
	width          float64
	count          int
	wheelPanFactor float64
}

// New returns a controller at initialZoom (clamped) with no geometry yet.
// A non-positive wheelPanFactor selects DefaultWheelPanFactor.
func New(engine *layout.Engine, initialZoom, wheelPanFactor float64) *Controller {
	if engine == nil {
		engine = layout.New(layout.DefaultConfig())
	}
	if initialZoom == 0 {
		initialZoom = 1
	}
	if wheelPanFactor <= 0 {
		wheelPanFactor = DefaultWheelPanFactor
	}
	z := engine.ClampZoom(initialZoom)
	return &Controller{
		engine:         engine,
		zoom:           z,
		initialZoom:    z,
		wheelPanFactor: wheelPanFactor,
	}
}

// Zoom returns the current zoom factor.
func (c *Controller) Zoom() float64 { return c.zoom }

// Pan returns the current pan offset.
func (c *Controller) Pan() float64 { return c.pan }

// ContainerWidth returns the last measured container width.
func (c *Controller) ContainerWidth() float64 { return c.width }

// Count returns the number of laid-out events.
func (c *Controller) Count() int { return c.count }

// Engine returns the layout engine backing the controller.
func (c *Controller) Engine() *layout.Engine { return c.engine }

// Bounds returns the current drag bounds.
func (c *Controller) Bounds() layout.Bounds {
	return c.engine.DragBounds(c.count, c.zoom, c.width)
}

// Ready reports whether both a container width and content are known.
func (c *Controller) Ready() bool {
	return c.width > 0 && c.count > 0
}

// SetGeometry records a new container width and item count. The first time
// the controller becomes Ready the content is centered; afterwards the pan is
// only clamped to the new bounds.
func (c *Controller) SetGeometry(width float64, count int) bool {
	if width == c.width && count == c.count {
		return false
	}
	wasReady := c.Ready()
	c.width, c.count = width, count
	if !c.Ready() {
		return c.setPan(0)
	}
	if !wasReady {
		c.setPan(c.engine.CenterPan(c.count, c.zoom, c.width))
		return true
	}
	c.setPan(c.Bounds().Clamp(c.pan))
	return true
}

// Reset drops the geometry and pan and returns to the initial zoom. Used when
// the timeline content is replaced wholesale; the next SetGeometry centers.
func (c *Controller) Reset() bool {
	changed := c.count != 0 || c.pan != 0 || c.zoom != c.initialZoom
	c.count, c.pan, c.zoom = 0, 0, c.initialZoom
	return changed
}

// SetZoom clamps z, applies it and re-centers on the content midpoint.
func (c *Controller) SetZoom(z float64) bool {
	z = c.engine.ClampZoom(z)
	if z == c.zoom {
		return false
	}
	c.zoom = z
	c.setPan(c.engine.CenterPan(c.count, c.zoom, c.width))
	debug.Log("viewport: zoom=%.3f pan=%.1f", c.zoom, c.pan)
	return true
}

// OnZoomStep zooms one step in direction d.
func (c *Controller) OnZoomStep(d Direction) bool {
	switch d {
	case In:
		return c.SetZoom(c.engine.ZoomIn(c.zoom))
	case Out:
		return c.SetZoom(c.engine.ZoomOut(c.zoom))
	default:
		return false
	}
}

// OnWheel handles a wheel event. With the zoom modifier held a negative
// deltaY zooms in and a positive one zooms out; otherwise the wheel pans.
// Non-finite deltas are ignored.
func (c *Controller) OnWheel(deltaY float64, modifier bool) bool {
	if !finite(deltaY) {
		return false
	}
	if modifier {
		switch {
		case deltaY < 0:
			return c.OnZoomStep(In)
		case deltaY > 0:
			return c.OnZoomStep(Out)
		default:
			return false
		}
	}
	return c.setPan(c.Bounds().Clamp(c.pan - deltaY*c.wheelPanFactor))
}

// OnDragDelta pans by dx. Non-finite deltas are ignored.
func (c *Controller) OnDragDelta(dx float64) bool {
	if !finite(dx) {
		return false
	}
	return c.setPan(c.Bounds().Clamp(c.pan + dx))
}

// ScrollToIndex centers column i in the container.
func (c *Controller) ScrollToIndex(i int) bool {
	if !c.Ready() {
		return false
	}
	return c.setPan(c.engine.PanToIndex(i, c.count, c.zoom, c.width))
}

// ScrollToToday centers the item whose time is nearest to now. It is a no-op
// when items is empty.
func (c *Controller) ScrollToToday(items []layout.Item, now time.Time) bool {
	i := layout.NearestIndex(items, now)
	if i < 0 {
		return false
	}
	return c.ScrollToIndex(i)
}

// VisibleRange returns the content-space interval currently on screen.
func (c *Controller) VisibleRange() layout.Bounds {
	return layout.Bounds{Left: -c.pan, Right: c.width - c.pan}
}

func (c *Controller) setPan(p float64) bool {
	if p == c.pan {
		return false
	}
	c.pan = p
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
