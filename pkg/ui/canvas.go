package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// cell is one terminal column. A wide rune occupies its own cell and marks
// the next one as a continuation (ch == 0).
type cell struct {
	ch    rune
	style int
}

// canvas is a fixed grid of styled cells; drawing outside it is clipped.
type canvas struct {
	w, h   int
	cells  [][]cell
	styles []lipgloss.Style
}

const styleNone = 0

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, styles: []lipgloss.Style{lipgloss.NewStyle()}}
	c.cells = make([][]cell, h)
	for y := range c.cells {
		row := make([]cell, w)
		for x := range row {
			row[x] = cell{ch: ' '}
		}
		c.cells[y] = row
	}
	return c
}

// style registers s and returns its handle.
func (c *canvas) style(s lipgloss.Style) int {
	c.styles = append(c.styles, s)
	return len(c.styles) - 1
}

func (c *canvas) in(x, y int) bool {
	return x >= 0 && x < c.w && y >= 0 && y < c.h
}

func (c *canvas) set(x, y int, ch rune, st int) {
	if !c.in(x, y) {
		return
	}
	// Overwriting half of a wide rune blanks the other half.
	if c.cells[y][x].ch == 0 && x > 0 {
		c.cells[y][x-1] = cell{ch: ' '}
	}
	c.cells[y][x] = cell{ch: ch, style: st}
	if runewidth.RuneWidth(ch) == 2 {
		if x+1 < c.w {
			c.cells[y][x+1] = cell{ch: 0, style: st}
		} else {
			c.cells[y][x] = cell{ch: ' ', style: st}
		}
	}
}

// text writes s starting at x and returns the column after it.
func (c *canvas) text(x, y int, s string, st int) int {
	for _, r := range s {
		c.set(x, y, r, st)
		x += runewidth.RuneWidth(r)
	}
	return x
}

func (c *canvas) hline(x0, x1, y int, ch rune, st int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		c.set(x, y, ch, st)
	}
}

func (c *canvas) vline(x, y0, y1 int, ch rune, st int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		c.set(x, y, ch, st)
	}
}

// render joins the rows, styling runs of cells that share a style.
func (c *canvas) render() string {
	var sb strings.Builder
	for y, row := range c.cells {
		if y > 0 {
			sb.WriteByte('\n')
		}
		var run strings.Builder
		cur := styleNone
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur == styleNone {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(c.styles[cur].Render(run.String()))
			}
			run.Reset()
		}
		for _, cl := range row {
			if cl.ch == 0 {
				continue
			}
			if cl.style != cur {
				flush()
				cur = cl.style
			}
			run.WriteRune(cl.ch)
		}
		flush()
	}
	return sb.String()
}

// plain returns row y without styling, for tests.
func (c *canvas) plain(y int) string {
	var sb strings.Builder
	for _, cl := range c.cells[y] {
		if cl.ch != 0 {
			sb.WriteRune(cl.ch)
		}
	}
	return sb.String()
}
