package ui

import (
	"fmt"
	"math"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/focus"
	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
	"github.com/vanderheijden86/swimlane/pkg/weeks"
)

// Rows of the continuous lane block.
const (
	curveRows  = 4
	cardRows   = 4
	laneHeight = curveRows + cardRows + 2
)

type borderSet struct {
	tl, tr, bl, br, h, v rune
}

var (
	borderRound  = borderSet{'╭', '╮', '╰', '╯', '─', '│'}
	borderHeavy  = borderSet{'┏', '┓', '┗', '┛', '━', '┃'}
	borderDouble = borderSet{'╔', '╗', '╚', '╝', '═', '║'}
)

// laneGeometry maps layout pixels onto terminal columns.
type laneGeometry struct {
	cellPx   float64
	pan      float64
	cardCols int
}

func newLaneGeometry(cfg layout.Config, cellPx, pan float64) laneGeometry {
	if cellPx <= 0 {
		cellPx = 8
	}
	cols := int(cfg.ItemWidth / cellPx)
	if cols < 8 {
		cols = 8
	}
	return laneGeometry{cellPx: cellPx, pan: pan, cardCols: cols}
}

func (g laneGeometry) col(x float64) int {
	return int(math.Floor((x + g.pan) / g.cellPx))
}

func (g laneGeometry) center(x float64) int {
	return g.col(x) + g.cardCols/2
}

// weekLabels maps event ids to the label of the week bucket holding them.
func weekLabels(buckets []timeline.Bucket) map[string]weeks.Week {
	out := make(map[string]weeks.Week)
	for _, b := range buckets {
		for _, ev := range b.Events {
			out[ev.ID] = b.Week
		}
	}
	return out
}

// renderLane draws the continuous timeline of v: connection arcs on top,
// one card per event, then an axis with the cursor marker.
func renderLane(v timeline.View, eng *layout.Engine, theme Theme, width int, cellPx float64, cursor int, now time.Time) *canvas {
	c := newCanvas(width, laneHeight)
	g := newLaneGeometry(eng.Config(), cellPx, v.Pan)

	stCard := c.style(theme.Card)
	stCursor := c.style(theme.Cursor)
	stFocused := c.style(theme.Focused)
	stConnected := c.style(theme.Connected)
	stDimmed := c.style(theme.Dimmed)
	stEdge := c.style(theme.Edge)
	stEdgeHot := c.style(theme.EdgeHot)
	stAxis := c.style(theme.Axis)
	stSubtle := c.style(theme.Subtle)

	xByID := make(map[string]float64, len(v.Items))
	for _, it := range v.Items {
		xByID[it.Event.ID] = it.X
	}

	// Arcs: cold ones first so arcs touching the focus stay on top.
	for pass := 0; pass < 2; pass++ {
		for _, e := range v.Edges {
			hot := v.FocusedEventID != "" && (e.FromID == v.FocusedEventID || e.ToID == v.FocusedEventID)
			if hot != (pass == 1) {
				continue
			}
			fx, okF := xByID[e.FromID]
			tx, okT := xByID[e.ToID]
			if !okF || !okT {
				continue
			}
			st := stEdge
			if hot {
				st = stEdgeHot
			}
			drawArc(c, g, eng, fx, tx, st)
		}
	}

	labels := weekLabels(v.Weeks)
	top := curveRows
	for i, it := range v.Items {
		x0 := g.col(it.X)
		if x0+g.cardCols < 0 || x0 >= width {
			continue
		}
		border, text := stCard, stCard
		bs := borderRound
		switch {
		case it.Flags.IsDimmed:
			border, text = stDimmed, stDimmed
		case it.Flags.IsFocused:
			border, bs = stFocused, borderDouble
		case it.Flags.IsConnected:
			border = stConnected
		}
		if i == cursor && !it.Flags.IsFocused {
			bs = borderHeavy
			if !it.Flags.IsDimmed {
				border = stCursor
			}
		}
		label := ""
		if w, ok := labels[it.Event.ID]; ok {
			label = w.Label
		}
		drawCard(c, theme, x0, top, g.cardCols, bs, border, text, it, label, now)
	}

	axis := top + cardRows
	c.hline(0, width-1, axis, '─', stAxis)
	for i, it := range v.Items {
		x := g.center(it.X)
		ch := '┴'
		if i == cursor {
			ch = '┼'
		}
		c.set(x, axis, ch, stAxis)
	}
	if cursor >= 0 && cursor < len(v.Items) {
		it := v.Items[cursor]
		x := g.center(it.X)
		c.set(x, axis+1, '▲', stCursor)
		c.text(x+2, axis+1, truncate(it.Event.ID, g.cardCols), stSubtle)
	}
	return c
}

func drawArc(c *canvas, g laneGeometry, eng *layout.Engine, fromX, toX float64, st int) {
	bez := eng.Curve(fromX, toX, 0)
	h := -bez.Apex().Y
	maxH := eng.Config().CurveMaxHeight
	rows := 1
	if maxH > 0 {
		rows = int(math.Ceil(h / maxH * curveRows))
	}
	if rows < 1 {
		rows = 1
	}
	if rows > curveRows {
		rows = curveRows
	}
	y := curveRows - rows
	fc, tc := g.center(fromX), g.center(toX)
	left, right := fc, tc
	if left > right {
		left, right = right, left
	}
	c.hline(left+1, right-1, y, '─', st)
	c.set(left, y, '╭', st)
	c.set(right, y, '╮', st)
	if y+1 <= curveRows-1 {
		c.vline(left, y+1, curveRows-1, '│', st)
		c.vline(right, y+1, curveRows-1, '│', st)
	}
	c.set(tc, curveRows-1, '▼', st)
}

func drawCard(c *canvas, theme Theme, x0, y0, cols int, bs borderSet, border, text int, it timeline.ViewItem, label string, now time.Time) {
	inner := cols - 2
	right := x0 + cols - 1

	c.set(x0, y0, bs.tl, border)
	c.hline(x0+1, right-1, y0, bs.h, border)
	c.set(right, y0, bs.tr, border)

	for y := y0 + 1; y < y0+cardRows-1; y++ {
		c.set(x0, y, bs.v, border)
		c.hline(x0+1, right-1, y, ' ', text)
		c.set(right, y, bs.v, border)
	}

	x := x0 + 1
	if col, ok := theme.CriticalityColor(it.Event.Criticality); ok && !it.Flags.IsDimmed {
		c.set(x, y0+1, '▌', c.style(theme.Renderer.NewStyle().Foreground(col)))
	}
	x++
	icon, col := theme.TypeIcon(it.Event.Type)
	iconStyle := text
	if !it.Flags.IsDimmed {
		iconStyle = c.style(theme.Renderer.NewStyle().Foreground(col).Bold(true))
	}
	x = c.text(x, y0+1, icon, iconStyle)
	c.text(x+1, y0+1, truncate(it.Event.Title, inner-4), text)

	when := fmt.Sprintf("%s · %s", it.Time.Format("Jan 2"), FormatTimeRel(it.Time, now))
	c.text(x0+2, y0+2, truncate(when, inner-2), text)

	bottom := y0 + cardRows - 1
	c.set(x0, bottom, bs.bl, border)
	c.hline(x0+1, right-1, bottom, bs.h, border)
	c.set(right, bottom, bs.br, border)
	if label != "" && inner > 6 {
		c.text(x0+2, bottom, " "+truncate(label, inner-4)+" ", border)
	}
}

// flagsByID indexes the focus flags of v.
func flagsByID(v timeline.View) map[string]focus.Flags {
	out := make(map[string]focus.Flags, len(v.Items))
	for _, it := range v.Items {
		out[it.Event.ID] = it.Flags
	}
	return out
}

// renderWeeks draws the eight-week bucket view: one column per week, events
// listed under their week label.
func renderWeeks(v timeline.View, theme Theme, width, height int, cursorID string) *canvas {
	if height < 3 {
		height = 3
	}
	c := newCanvas(width, height)
	if len(v.Weeks) == 0 {
		return c
	}
	stLabel := c.style(theme.WeekLabel)
	stNow := c.style(theme.WeekNow)
	stSubtle := c.style(theme.Subtle)
	stCard := c.style(theme.Card)
	stCursor := c.style(theme.Cursor)
	stFocused := c.style(theme.Focused)
	stConnected := c.style(theme.Connected)
	stDimmed := c.style(theme.Dimmed)
	stAxis := c.style(theme.Axis)

	colW := width / len(v.Weeks)
	if colW < 4 {
		colW = 4
	}
	flags := flagsByID(v)

	for i, b := range v.Weeks {
		x0 := i * colW
		if x0 >= width {
			break
		}
		st := stLabel
		if b.Week.IsCurrentWeek {
			st = stNow
		}
		c.text(x0, 0, truncate(b.Week.Label, colW-1), st)
		c.text(x0, 1, truncate(fmt.Sprintf("%s–%s", b.Week.StartDate.Format("Jan 2"), b.Week.EndDate.Format("Jan 2")), colW-1), stSubtle)
		if i > 0 {
			c.vline(x0-1, 0, height-1, '│', stAxis)
		}

		y := 2
		for j, ev := range b.Events {
			if y >= height {
				break
			}
			if y == height-1 && j < len(b.Events)-1 {
				c.text(x0, y, truncate(fmt.Sprintf("+%d more", len(b.Events)-j), colW-1), stSubtle)
				break
			}
			f := flags[ev.ID]
			st := stCard
			marker := "•"
			switch {
			case f.IsDimmed:
				st = stDimmed
			case f.IsFocused:
				st, marker = stFocused, "◉"
			case f.IsConnected:
				st, marker = stConnected, "◎"
			}
			if ev.ID == cursorID {
				marker = "›"
				if !f.IsDimmed && !f.IsFocused {
					st = stCursor
				}
			}
			c.text(x0, y, truncate(marker+" "+ev.Title, colW-1), st)
			y++
		}
	}
	return c
}
