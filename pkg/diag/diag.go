// Package diag carries the diagnostics the timeline engine emits when it
// silently degrades: unparseable timestamps fall back to "now" and dangling
// links are hidden. Installing a Hook does not change engine behaviour; it only
// lets callers observe these cases.
package diag

import "fmt"

// Kind classifies a diagnostic.
type Kind string

const (
	// UnparseableTimestamp means a raw timestamp matched no rule and resolved to now.
	UnparseableTimestamp Kind = "unparseable_timestamp"
	// DanglingLink means linkedEventId names an event that does not exist.
	DanglingLink Kind = "dangling_link"
	// CrossInitiativeLink means linkedEventId names an event in another initiative.
	CrossInitiativeLink Kind = "cross_initiative_link"
	// DuplicateEventID means two events share an id; the first one wins.
	DuplicateEventID Kind = "duplicate_event_id"
)

// Diagnostic describes one silently-handled degenerate input.
type Diagnostic struct {
	Kind         Kind   `json:"kind"`
	InitiativeID string `json:"initiative_id,omitempty"`
	EventID      string `json:"event_id,omitempty"`
	Raw          string `json:"raw,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s event=%s", d.Kind, d.EventID)
	if d.InitiativeID != "" {
		s += " initiative=" + d.InitiativeID
	}
	if d.Raw != "" {
		s += fmt.Sprintf(" raw=%q", d.Raw)
	}
	if d.Detail != "" {
		s += " (" + d.Detail + ")"
	}
	return s
}

// Hook receives diagnostics. A nil Hook is valid and discards everything.
type Hook func(Diagnostic)

// Emit calls h with d if h is non-nil.
func (h Hook) Emit(d Diagnostic) {
	if h != nil {
		h(d)
	}
}

// Collector is a Hook target that records diagnostics in order. It is not
// safe for concurrent use, matching the single-threaded engine.
type Collector struct {
	items []Diagnostic
}

// Hook returns a Hook that appends to c.
func (c *Collector) Hook() Hook {
	return func(d Diagnostic) {
		c.items = append(c.items, d)
	}
}

// All returns the recorded diagnostics.
func (c *Collector) All() []Diagnostic {
	return c.items
}

// Count returns how many diagnostics of kind k were recorded.
func (c *Collector) Count(k Kind) int {
	n := 0
	for _, d := range c.items {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Reset drops all recorded diagnostics.
func (c *Collector) Reset() {
	c.items = nil
}
