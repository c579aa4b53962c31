// Package model defines the swimlane records supplied by a data provider.
//
// Records are immutable from the timeline engine's point of view: the engine
// derives view state from them but never creates, mutates, or deletes them.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Status represents the health of an initiative.
type Status string

const (
	StatusBlocked  Status = "blocked"
	StatusOnTrack  Status = "on-track"
	StatusDelayed  Status = "delayed"
	StatusFinished Status = "finished"
)

// IsValid reports whether s is one of the known initiative statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusBlocked, StatusOnTrack, StatusDelayed, StatusFinished:
		return true
	}
	return false
}

// NormalizeStatus lowercases and trims a raw status, mapping the common
// "on track" / "on_track" spellings to StatusOnTrack.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return Status(s)
}

// Initiative is a named workstream whose events share one timeline (a swimlane).
type Initiative struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	Status      Status `json:"status"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// ErrMissingID is returned by Validate when a record has no id.
var ErrMissingID = errors.New("missing id")

// Validate checks the fields the engine relies on.
func (i Initiative) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("initiative %s: name is required", i.ID)
	}
	if i.Status != "" && !i.Status.IsValid() {
		return fmt.Errorf("initiative %s: invalid status %q", i.ID, i.Status)
	}
	return nil
}
