package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the timeline key bindings.
type KeyMap struct {
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	Next       key.Binding
	Prev       key.Binding
	Focus      key.Binding
	Escape     key.Binding
	NextLane   key.Binding
	PrevLane   key.Binding
	Today      key.Binding
	ToggleView key.Binding
	ToggleMode key.Binding
	Copy       key.Binding
	Detail     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ZoomIn:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut:    key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		PanLeft:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/→", "pan")),
		PanRight:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "pan right")),
		Next:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next event")),
		Prev:       key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous event")),
		Focus:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "focus")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unfocus")),
		NextLane:   key.NewBinding(key.WithKeys("]"), key.WithHelp("[/]", "initiative")),
		PrevLane:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous initiative")),
		Today:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		ToggleView: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "weeks")),
		ToggleMode: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "lines")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Detail:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "details")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp returns the one-line help shown in the footer.
func (k KeyMap) ShortHelp() string {
	bindings := []key.Binding{
		k.ZoomIn, k.PanLeft, k.Next, k.Focus, k.Escape, k.NextLane,
		k.Today, k.ToggleView, k.ToggleMode, k.Copy, k.Detail, k.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
