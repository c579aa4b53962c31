package viewport

import (
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

func newController() *Controller {
	return New(layout.New(layout.DefaultConfig()), 1, 0)
}

func TestNewClampsInitialZoom(t *testing.T) {
	if got := New(nil, 40, 0).Zoom(); got != 5 {
		t.Errorf("expected zoom 5, got %v", got)
	}
	if got := New(nil, 0, 0).Zoom(); got != 1 {
		t.Errorf("expected default zoom 1, got %v", got)
	}
}

func TestFirstGeometryCenters(t *testing.T) {
	c := newController()
	if c.Ready() || c.Bounds() != (layout.Bounds{}) {
		t.Errorf("expected degenerate bounds before geometry, got %+v", c.Bounds())
	}
	if !c.SetGeometry(2000, 4) {
		t.Fatal("expected change")
	}
	// content [100, 1200] mid 650
	if c.Pan() != 350 {
		t.Errorf("expected centered pan 350, got %v", c.Pan())
	}
	if c.SetGeometry(2000, 4) {
		t.Error("identical geometry should be a no-op")
	}
}

func TestWheelPans(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 20)
	start := c.Pan()
	c.OnWheel(100, false)
	if c.Pan() != start-150 {
		t.Errorf("expected pan %v, got %v", start-150, c.Pan())
	}
	if c.Zoom() != 1 {
		t.Errorf("pan must not zoom, got %v", c.Zoom())
	}
}

func TestWheelWithModifierZooms(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 20)
	c.OnWheel(-3, true)
	if c.Zoom() != 1.2 {
		t.Errorf("expected zoom in to 1.2, got %v", c.Zoom())
	}
	c.OnWheel(3, true)
	if c.Zoom() != 1 {
		t.Errorf("expected zoom back to 1, got %v", c.Zoom())
	}
	if c.OnWheel(0, true) {
		t.Error("zero delta with modifier should be a no-op")
	}
}

func TestZoomRecenters(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 20)
	c.OnDragDelta(-2000)
	c.OnZoomStep(In)
	want := c.Engine().CenterPan(20, c.Zoom(), 1000)
	if c.Pan() != want {
		t.Errorf("expected re-centered pan %v, got %v", want, c.Pan())
	}
}

func TestZoomAtLimitIsNoop(t *testing.T) {
	c := New(nil, 5, 0)
	c.SetGeometry(1000, 3)
	if c.OnZoomStep(In) {
		t.Error("zoom beyond max should not report a change")
	}
}

func TestDragClamps(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 4)
	c.OnDragDelta(1e9)
	if c.Pan() != c.Bounds().Right {
		t.Errorf("expected pan clamped to %v, got %v", c.Bounds().Right, c.Pan())
	}
	c.OnDragDelta(-1e9)
	if c.Pan() != c.Bounds().Left {
		t.Errorf("expected pan clamped to %v, got %v", c.Bounds().Left, c.Pan())
	}
}

func TestNonFiniteDeltasIgnored(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 4)
	c.OnDragDelta(-50)
	pan, zoom := c.Pan(), c.Zoom()
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if c.OnWheel(d, false) || c.OnWheel(d, true) || c.OnDragDelta(d) {
			t.Errorf("expected delta %v to change nothing", d)
		}
		if c.Pan() != pan || c.Zoom() != zoom {
			t.Errorf("delta %v: expected pan %v zoom %v, got pan %v zoom %v", d, pan, zoom, c.Pan(), c.Zoom())
		}
	}
	if b := c.Bounds(); math.IsNaN(c.Pan()) || c.Pan() < b.Left || c.Pan() > b.Right {
		t.Errorf("expected finite pan within %+v, got %v", b, c.Pan())
	}
}

func TestResetRestoresInitialZoom(t *testing.T) {
	c := New(nil, 2, 0)
	c.SetGeometry(800, 6)
	c.OnZoomStep(In)
	c.OnDragDelta(-40)
	if !c.Reset() {
		t.Fatal("expected Reset to report a change")
	}
	if c.Zoom() != 2 || c.Pan() != 0 || c.Ready() {
		t.Errorf("expected zoom 2, pan 0 and no geometry, got zoom %v pan %v count %d", c.Zoom(), c.Pan(), c.Count())
	}
	c.SetGeometry(800, 3)
	if want := c.Engine().CenterPan(3, 2, 800); c.Pan() != want {
		t.Errorf("expected re-centered pan %v, got %v", want, c.Pan())
	}
	if c.Reset(); c.Reset() {
		t.Error("expected a second Reset to be a no-op")
	}
}

func TestPanStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newController()
		c.SetGeometry(rapid.Float64Range(1, 3000).Draw(t, "width"), rapid.IntRange(1, 50).Draw(t, "n"))
		ops := rapid.IntRange(0, 40).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				c.OnDragDelta(rapid.Float64Range(-5000, 5000).Draw(t, "dx"))
			case 1:
				c.OnWheel(rapid.Float64Range(-500, 500).Draw(t, "dy"), rapid.Bool().Draw(t, "mod"))
			case 2:
				c.OnZoomStep(rapid.SampledFrom([]Direction{In, Out}).Draw(t, "dir"))
			case 3:
				c.ScrollToIndex(rapid.IntRange(-5, 60).Draw(t, "idx"))
			}
			b := c.Bounds()
			if c.Pan() < b.Left || c.Pan() > b.Right {
				t.Fatalf("pan %v outside %+v", c.Pan(), b)
			}
			if c.Zoom() < 0.5 || c.Zoom() > 5 {
				t.Fatalf("zoom %v out of range", c.Zoom())
			}
		}
	})
}

func TestScrollToToday(t *testing.T) {
	now := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	items := make([]layout.Item, 20)
	for i := range items {
		items[i] = layout.Item{Event: model.Event{ID: string(rune('a' + i))}, Time: now.AddDate(0, 0, i-12)}
	}
	c := newController()
	if c.ScrollToToday(items, now) {
		t.Error("scroll without geometry should be a no-op")
	}
	c.SetGeometry(1000, len(items))
	c.ScrollToToday(items, now)
	if want := c.Engine().PanToIndex(12, 20, 1, 1000); c.Pan() != want {
		t.Errorf("expected pan %v, got %v", want, c.Pan())
	}
	if c.ScrollToToday(nil, now) {
		t.Error("no items should be a no-op")
	}
}

func TestShrinkingContentClampsPan(t *testing.T) {
	c := newController()
	c.SetGeometry(1000, 40)
	c.OnDragDelta(-1e9)
	c.SetGeometry(1000, 2)
	b := c.Bounds()
	if c.Pan() < b.Left || c.Pan() > b.Right {
		t.Errorf("pan %v outside %+v after shrink", c.Pan(), b)
	}
	c.SetGeometry(0, 2)
	if c.Pan() != 0 || c.Bounds() != (layout.Bounds{}) {
		t.Errorf("expected degenerate state, got pan %v bounds %+v", c.Pan(), c.Bounds())
	}
}
