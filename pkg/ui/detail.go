package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/swimlane/pkg/debug"
)

// detailPane shows the event under the cursor as rendered markdown.
type detailPane struct {
	vp       viewport.Model
	renderer *glamour.TermRenderer
	wrap     int
	eventID  string
	source   string
}

func newDetailPane(width, height int) *detailPane {
	d := &detailPane{vp: viewport.New(width, height)}
	d.resize(width, height)
	return d
}

func (d *detailPane) resize(width, height int) {
	if width < 10 {
		width = 10
	}
	if height < 1 {
		height = 1
	}
	d.vp.Width = width
	d.vp.Height = height
	wrap := width - 4
	if wrap != d.wrap || d.renderer == nil {
		d.wrap = wrap
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(markdownStyle()),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			debug.Log("detail: glamour renderer: %v", err)
			r = nil
		}
		d.renderer = r
		if d.source != "" {
			d.render()
		}
	}
}

// show loads the markdown for eventID; the scroll position resets only when
// the event changes.
func (d *detailPane) show(eventID, md string) {
	if eventID == d.eventID && md == d.source {
		return
	}
	moved := eventID != d.eventID
	d.eventID = eventID
	d.source = md
	d.render()
	if moved {
		d.vp.GotoTop()
	}
}

func (d *detailPane) render() {
	out := d.source
	if d.renderer != nil {
		if r, err := d.renderer.Render(d.source); err == nil {
			out = strings.TrimRight(r, "\n")
		}
	}
	d.vp.SetContent(out)
}

func (d *detailPane) view() string {
	return d.vp.View()
}
