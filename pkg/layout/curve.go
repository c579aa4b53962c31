package layout

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate; Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bezier is a quadratic Bézier curve.
type Bezier struct {
	Start   Point `json:"start"`
	Control Point `json:"control"`
	End     Point `json:"end"`
}

// At evaluates the curve at t in [0, 1].
func (b Bezier) At(t float64) Point {
	u := 1 - t
	return Point{
		X: u*u*b.Start.X + 2*u*t*b.Control.X + t*t*b.End.X,
		Y: u*u*b.Start.Y + 2*u*t*b.Control.Y + t*t*b.End.Y,
	}
}

// Apex returns the highest point of the curve.
func (b Bezier) Apex() Point { return b.At(0.5) }

// SVGPath renders b as an SVG path "d" attribute.
func (b Bezier) SVGPath() string {
	return fmt.Sprintf("M %.1f %.1f Q %.1f %.1f %.1f %.1f",
		b.Start.X, b.Start.Y, b.Control.X, b.Control.Y, b.End.X, b.End.Y)
}

// Curve connects the centers of two items whose left edges are fromX and toX,
// arching above baseline. The arch grows with the distance covered and is
// capped by CurveMaxHeight.
func (e *Engine) Curve(fromX, toX, baseline float64) Bezier {
	half := e.cfg.ItemWidth / 2
	start := Point{X: fromX + half, Y: baseline}
	end := Point{X: toX + half, Y: baseline}
	h := math.Min(math.Abs(end.X-start.X)*e.cfg.CurveHeightFactor, e.cfg.CurveMaxHeight)
	// A quadratic's apex reaches half the control point's offset.
	return Bezier{
		Start:   start,
		Control: Point{X: (start.X + end.X) / 2, Y: baseline - 2*h},
		End:     end,
	}
}
