// Package focus implements the focus-mode state machine: one event may be
// focused at a time, its direct connections stay highlighted and every other
// event in the initiative is dimmed.
package focus

import (
	"github.com/vanderheijden86/swimlane/pkg/connection"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// State is either Idle or Focused(eventID). The zero value is Idle.
type State struct {
	eventID string
	focused bool
}

// Idle returns the unfocused state.
func Idle() State { return State{} }

// Focused returns the state focused on id.
func Focused(id string) State { return State{eventID: id, focused: true} }

// IsIdle reports whether no event is focused.
func (s State) IsIdle() bool { return !s.focused }

// EventID returns the focused event id, or "" when idle.
func (s State) EventID() string { return s.eventID }

func (s State) String() string {
	if !s.focused {
		return "Idle"
	}
	return "Focused(" + s.eventID + ")"
}

// Select toggles focus on id. Re-selecting the focused event returns to Idle;
// selecting another event switches focus directly.
func (s State) Select(id string) State {
	if s.focused && s.eventID == id {
		return Idle()
	}
	return Focused(id)
}

// ChangeInitiative always clears focus.
func (s State) ChangeInitiative() State { return Idle() }

// Escape forces Idle.
func (s State) Escape() State { return Idle() }

// Flags are the per-event render hints derived from a State.
type Flags struct {
	IsFocused   bool `json:"isFocused"`
	IsConnected bool `json:"isConnected"`
	IsDimmed    bool `json:"isDimmed"`
}

// FlagsFor computes the flags of every event in initiativeID. Events from other
// initiatives are ignored. While Idle every flag is false.
func FlagsFor(s State, events []model.Event, g *connection.Graph, initiativeID string) map[string]Flags {
	defer metrics.Timer(metrics.FocusFlags)()

	out := make(map[string]Flags, len(events))
	var connected map[string]bool
	if s.focused {
		if g == nil {
			g = connection.New(events)
		}
		connected = g.ConnectedIDs(s.eventID, initiativeID)
	}
	for _, e := range events {
		if e.InitiativeID != initiativeID {
			continue
		}
		if !s.focused {
			out[e.ID] = Flags{}
			continue
		}
		f := Flags{
			IsFocused:   e.ID == s.eventID,
			IsConnected: connected[e.ID],
		}
		f.IsDimmed = !f.IsFocused && !f.IsConnected
		out[e.ID] = f
	}
	return out
}

// Controller owns the focus state for one session.
type Controller struct {
	state State
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Select applies State.Select and reports whether the state changed.
func (c *Controller) Select(id string) bool {
	return c.set(c.state.Select(id))
}

// ChangeInitiative resets to Idle and reports whether focus was cleared.
func (c *Controller) ChangeInitiative() bool {
	return c.set(c.state.ChangeInitiative())
}

// Escape resets to Idle and reports whether focus was cleared.
func (c *Controller) Escape() bool {
	return c.set(c.state.Escape())
}

// Flags computes per-event flags for the current state.
func (c *Controller) Flags(events []model.Event, g *connection.Graph, initiativeID string) map[string]Flags {
	return FlagsFor(c.state, events, g, initiativeID)
}

func (c *Controller) set(next State) bool {
	if next == c.state {
		return false
	}
	c.state = next
	return true
}
