package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// FormatTimeRel returns a relative time string ("2h ago", "in 3d") for t as
// seen from now.
func FormatTimeRel(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t)
	suffix := func(s string) string { return s + " ago" }
	if d < 0 {
		d = -d
		suffix = func(s string) string { return "in " + s }
	}
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return suffix(fmt.Sprintf("%dm", int(d.Minutes())))
	case d < 24*time.Hour:
		return suffix(fmt.Sprintf("%dh", int(d.Hours())))
	case d < 7*24*time.Hour:
		return suffix(fmt.Sprintf("%dd", int(d.Hours()/24)))
	case d < 30*24*time.Hour:
		return suffix(fmt.Sprintf("%dw", int(d.Hours()/(24*7))))
	default:
		return suffix(fmt.Sprintf("%dmo", int(d.Hours()/(24*30))))
	}
}

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// truncate truncates s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// EventMarkdown renders an event as markdown for the detail pane and the
// clipboard. connected lists the ids linked to it in either direction.
func EventMarkdown(ev model.Event, resolved time.Time, connected map[string]bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", ev.Title)
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", ev.ID)
	fmt.Fprintf(&sb, "- **Type:** %s\n", ev.Type)
	if ev.Criticality != "" {
		fmt.Fprintf(&sb, "- **Criticality:** %s\n", ev.Criticality)
	}
	fmt.Fprintf(&sb, "- **When:** %s (%s)\n", ev.Timestamp, resolved.Format("Mon Jan 2 2006 15:04"))
	if ev.Actor != "" {
		fmt.Fprintf(&sb, "- **Actor:** %s\n", ev.Actor)
	}
	if ev.LinkedEventID != "" {
		fmt.Fprintf(&sb, "- **Links to:** `%s`\n", ev.LinkedEventID)
	}
	if len(connected) > 0 {
		ids := make([]string, 0, len(connected))
		for id := range connected {
			ids = append(ids, "`"+id+"`")
		}
		sort.Strings(ids)
		fmt.Fprintf(&sb, "- **Connected:** %s\n", strings.Join(ids, ", "))
	}
	if ev.Summary != "" {
		fmt.Fprintf(&sb, "\n## Summary\n\n%s\n", ev.Summary)
	}
	if len(ev.Evidence) > 0 {
		sb.WriteString("\n## Evidence\n\n")
		for _, e := range ev.Evidence {
			switch {
			case e.URL != "" && e.Preview != "":
				fmt.Fprintf(&sb, "- %s: [%s](%s)\n", e.Type, e.Preview, e.URL)
			case e.URL != "":
				fmt.Fprintf(&sb, "- %s: %s\n", e.Type, e.URL)
			default:
				fmt.Fprintf(&sb, "- %s: %s\n", e.Type, e.Preview)
			}
		}
	}
	return sb.String()
}
