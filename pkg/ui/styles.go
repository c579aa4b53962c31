package ui

import "github.com/charmbracelet/lipgloss"

// Spacing constants for consistent layout (in characters)
const (
	SpaceXS = 1
	SpaceSM = 2
	SpaceMD = 3
)

// Adaptive palette. Light mode colors are tuned for WCAG AA contrast on white.
var (
	ColorText      = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted     = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorDim       = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}
	ColorInfo      = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger    = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}
	ColorPink      = lipgloss.AdaptiveColor{Light: "#C2185B", Dark: "#FF79C6"}
	ColorBorder    = lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"}

	// Initiative status
	ColorStatusOnTrack  = ColorSuccess
	ColorStatusDelayed  = ColorWarning
	ColorStatusBlocked  = ColorDanger
	ColorStatusFinished = ColorSecondary
)
