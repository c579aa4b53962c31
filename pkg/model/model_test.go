package model

import (
	"errors"
	"testing"
)

func TestInitiativeValidate(t *testing.T) {
	ok := Initiative{ID: "sl1", Name: "Platform", Status: StatusOnTrack}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid initiative, got %v", err)
	}

	if err := (Initiative{Name: "x"}).Validate(); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if err := (Initiative{ID: "a"}).Validate(); err == nil {
		t.Error("expected error for missing name")
	}
	if err := (Initiative{ID: "a", Name: "x", Status: "paused"}).Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]Status{
		"On Track":  StatusOnTrack,
		"on_track":  StatusOnTrack,
		" BLOCKED ": StatusBlocked,
		"finished":  StatusFinished,
	}
	for raw, want := range tests {
		if got := NormalizeStatus(raw); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestEventValidate(t *testing.T) {
	e := Event{ID: "e1", Type: EventDecision, InitiativeID: "sl1", Timestamp: "whenever"}
	if err := e.Validate(); err != nil {
		t.Fatalf("unparseable timestamp must not fail validation: %v", err)
	}

	e.InitiativeID = ""
	if err := e.Validate(); err == nil {
		t.Error("expected error for missing initiativeId")
	}

	e = Event{ID: "e1", Type: "party", InitiativeID: "sl1"}
	if err := e.Validate(); err == nil {
		t.Error("expected error for unknown type")
	}

	e = Event{ID: "e1", InitiativeID: "sl1", Criticality: "meh"}
	if err := e.Validate(); err == nil {
		t.Error("expected error for unknown criticality")
	}
}

func TestEventsForInitiative(t *testing.T) {
	events := []Event{
		{ID: "a", InitiativeID: "x"},
		{ID: "b", InitiativeID: "y"},
		{ID: "c", InitiativeID: "x"},
	}
	got := EventsForInitiative(events, "x")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected [a c], got %+v", got)
	}
}
