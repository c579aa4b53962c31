package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// markdownStyle picks the glamour standard style for the detected profile.
func markdownStyle() string {
	if TermProfile <= colorprofile.Ascii {
		return "notty"
	}
	return "dracula"
}

// Theme holds the styles used to paint a timeline. Styles are built once so
// rendering a frame allocates no new lipgloss styles.
type Theme struct {
	Renderer *lipgloss.Renderer

	Base      lipgloss.Style
	Header    lipgloss.Style
	Subtle    lipgloss.Style
	Help      lipgloss.Style
	Status    lipgloss.Style
	StatusErr lipgloss.Style

	Card      lipgloss.Style // border and text of an ordinary card
	Cursor    lipgloss.Style // card under the keyboard cursor
	Focused   lipgloss.Style
	Connected lipgloss.Style
	Dimmed    lipgloss.Style
	Edge      lipgloss.Style
	EdgeHot   lipgloss.Style // edge touching the focused event
	Axis      lipgloss.Style
	WeekNow   lipgloss.Style
	WeekLabel lipgloss.Style
	Detail    lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{Renderer: r}

	t.Base = r.NewStyle().Foreground(ColorText)
	t.Header = r.NewStyle().
		Background(ColorPrimary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, SpaceXS)
	t.Subtle = r.NewStyle().Foreground(ColorSubtext)
	t.Help = r.NewStyle().Foreground(ColorMuted)
	t.Status = r.NewStyle().Foreground(ColorInfo)
	t.StatusErr = r.NewStyle().Foreground(ColorDanger).Bold(true)

	t.Card = r.NewStyle().Foreground(ColorText)
	t.Cursor = r.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.Connected = r.NewStyle().Foreground(ColorPink)
	t.Dimmed = r.NewStyle().Foreground(ColorDim)
	t.Edge = r.NewStyle().Foreground(ColorMuted)
	t.EdgeHot = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.Axis = r.NewStyle().Foreground(ColorBorder)
	t.WeekNow = r.NewStyle().Foreground(ColorPrimary).Bold(true).Underline(true)
	t.WeekLabel = r.NewStyle().Foreground(ColorSecondary).Bold(true)
	t.Detail = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, SpaceXS)

	return t
}

// StatusColor returns the color for an initiative status.
func (t Theme) StatusColor(s model.Status) lipgloss.AdaptiveColor {
	switch s {
	case model.StatusOnTrack:
		return ColorStatusOnTrack
	case model.StatusDelayed:
		return ColorStatusDelayed
	case model.StatusBlocked:
		return ColorStatusBlocked
	case model.StatusFinished:
		return ColorStatusFinished
	default:
		return ColorSubtext
	}
}

// TypeIcon returns a one-cell glyph and color for an event type.
func (t Theme) TypeIcon(typ model.EventType) (string, lipgloss.AdaptiveColor) {
	switch typ {
	case model.EventMeeting:
		return "M", ColorInfo
	case model.EventDecision:
		return "D", ColorWarning
	case model.EventCommitment:
		return "C", ColorSuccess
	case model.EventDocument:
		return "d", ColorSecondary
	case model.EventAlert:
		return "!", ColorDanger
	case model.EventMilestone:
		return "◆", ColorPrimary
	default:
		return "·", ColorSubtext
	}
}

// CriticalityColor returns the marker color for c and false when c carries no
// marker.
func (t Theme) CriticalityColor(c model.Criticality) (lipgloss.AdaptiveColor, bool) {
	switch c {
	case model.CriticalityCritical:
		return ColorDanger, true
	case model.CriticalityUrgent:
		return ColorWarning, true
	case model.CriticalityWarning:
		return lipgloss.AdaptiveColor{Light: "#8A6D00", Dark: "#F1FA8C"}, true
	case model.CriticalityInfo:
		return ColorInfo, true
	}
	return lipgloss.AdaptiveColor{}, false
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
