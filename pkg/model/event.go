package model

import (
	"fmt"
	"strings"
)

// EventType categorizes a timeline item.
type EventType string

const (
	EventMeeting    EventType = "meeting"
	EventDecision   EventType = "decision"
	EventCommitment EventType = "commitment"
	EventDocument   EventType = "document"
	EventAlert      EventType = "alert"
	EventMilestone  EventType = "milestone"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventMeeting, EventDecision, EventCommitment, EventDocument, EventAlert, EventMilestone:
		return true
	}
	return false
}

// Criticality is the optional severity marker on an event.
type Criticality string

const (
	CriticalityNormal   Criticality = "normal"
	CriticalityUrgent   Criticality = "urgent"
	CriticalityCritical Criticality = "critical"
	CriticalityWarning  Criticality = "warning"
	CriticalityInfo     Criticality = "info"
)

// IsValid reports whether c is a known criticality. The empty value is valid
// because criticality is optional.
func (c Criticality) IsValid() bool {
	switch c {
	case "", CriticalityNormal, CriticalityUrgent, CriticalityCritical, CriticalityWarning, CriticalityInfo:
		return true
	}
	return false
}

// Evidence is a supporting artifact attached to an event.
type Evidence struct {
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// Event is a discrete, timestamped occurrence on an initiative's timeline.
//
// Timestamp is kept raw; use the timestamp package to resolve it against a
// reference instant. LinkedEventID is at most one outbound reference and is
// not guaranteed to point at an existing event.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	Title         string      `json:"title"`
	Timestamp     string      `json:"timestamp"`
	Actor         string      `json:"actor,omitempty"`
	Summary       string      `json:"summary,omitempty"`
	Evidence      []Evidence  `json:"evidence,omitempty"`
	Criticality   Criticality `json:"criticality,omitempty"`
	LinkedEventID string      `json:"linkedEventId,omitempty"`
	InitiativeID  string      `json:"initiativeId"`
}

// HasLink reports whether the event carries an outbound link.
func (e Event) HasLink() bool {
	return e.LinkedEventID != ""
}

// Validate checks the fields the engine relies on. Unknown types and
// criticalities are rejected; an unparseable timestamp is not an error.
func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(e.InitiativeID) == "" {
		return fmt.Errorf("event %s: initiativeId is required", e.ID)
	}
	if e.Type != "" && !e.Type.IsValid() {
		return fmt.Errorf("event %s: invalid type %q", e.ID, e.Type)
	}
	if !e.Criticality.IsValid() {
		return fmt.Errorf("event %s: invalid criticality %q", e.ID, e.Criticality)
	}
	return nil
}

// EventsForInitiative returns the events belonging to initiativeID, preserving
// input order.
func EventsForInitiative(events []Event, initiativeID string) []Event {
	var out []Event
	for _, e := range events {
		if e.InitiativeID == initiativeID {
			out = append(out, e)
		}
	}
	return out
}
