package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// AssertEventCount verifies the expected number of events.
func AssertEventCount(t *testing.T, events []model.Event, expected int) {
	t.Helper()
	if len(events) != expected {
		t.Errorf("expected %d events, got %d", expected, len(events))
	}
}

// AssertNoDuplicateIDs verifies all event IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, events []model.Event) {
	t.Helper()
	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.ID] {
			t.Errorf("duplicate event ID: %s", e.ID)
		}
		seen[e.ID] = true
	}
}

// AssertAllValid verifies all events pass validation.
func AssertAllValid(t *testing.T, events []model.Event) {
	t.Helper()
	for i, e := range events {
		if err := e.Validate(); err != nil {
			t.Errorf("event %d (%s) invalid: %v", i, e.ID, err)
		}
	}
}

// AssertLinkExists verifies that fromID links to toID.
func AssertLinkExists(t *testing.T, events []model.Event, fromID, toID string) {
	t.Helper()
	e := FindEvent(events, fromID)
	if e == nil {
		t.Errorf("event %s not found", fromID)
		return
	}
	if e.LinkedEventID != toID {
		t.Errorf("expected link from %s to %s, got %q", fromID, toID, e.LinkedEventID)
	}
}

// AssertNoCycles verifies that following links never revisits an event.
func AssertNoCycles(t *testing.T, events []model.Event) {
	t.Helper()
	if id, ok := findCycle(events); ok {
		t.Errorf("unexpected link cycle through %s", id)
	}
}

// AssertHasCycle verifies that the links contain at least one cycle.
func AssertHasCycle(t *testing.T, events []model.Event) {
	t.Helper()
	if _, ok := findCycle(events); !ok {
		t.Error("expected cycle but none found")
	}
}

// findCycle walks each link chain. Every event has at most one outbound
// link, so a chain either ends, leaves the set, or loops.
func findCycle(events []model.Event) (string, bool) {
	next := make(map[string]string, len(events))
	for _, e := range events {
		if e.HasLink() {
			next[e.ID] = e.LinkedEventID
		}
	}
	for _, e := range events {
		seen := map[string]bool{}
		for id, ok := e.ID, true; ok; id, ok = next[id] {
			if seen[id] {
				return id, true
			}
			seen[id] = true
		}
	}
	return "", false
}

// AssertTypeCounts verifies the count of events per type.
func AssertTypeCounts(t *testing.T, events []model.Event, want map[model.EventType]int) {
	t.Helper()
	got := CountByType(events)
	for typ, n := range want {
		if got[typ] != n {
			t.Errorf("expected %d %s events, got %d", n, typ, got[typ])
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}

	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// AssertJSON compares actual value as indented JSON against the golden file.
func (g *GoldenFile) AssertJSON(actual any) {
	g.t.Helper()
	data, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal actual value: %v", err)
	}
	g.Assert(string(data))
}

// Data directory helpers

// WriteDataDir writes initiatives.jsonl and events.jsonl into a fresh
// temporary directory and returns its path.
func WriteDataDir(t *testing.T, initiatives []model.Initiative, events []model.Event) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "initiatives.jsonl"), ToJSONL(initiatives))
	writeFile(t, filepath.Join(dir, "events.jsonl"), ToJSONL(events))
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Lookup helpers

// BuildEventMap creates a map from ID to event for quick lookups.
func BuildEventMap(events []model.Event) map[string]*model.Event {
	m := make(map[string]*model.Event, len(events))
	for i := range events {
		m[events[i].ID] = &events[i]
	}
	return m
}

// FindEvent returns the event with the given ID, or nil if not found.
func FindEvent(events []model.Event, id string) *model.Event {
	for i := range events {
		if events[i].ID == id {
			return &events[i]
		}
	}
	return nil
}

// CountByType returns a map of event type -> count.
func CountByType(events []model.Event) map[model.EventType]int {
	counts := make(map[model.EventType]int)
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}

// CountByInitiative returns a map of initiative id -> event count.
func CountByInitiative(events []model.Event) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.InitiativeID]++
	}
	return counts
}

// GetIDs returns a slice of all event IDs.
func GetIDs(events []model.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}

// LinkCount returns how many events carry an outbound link.
func LinkCount(events []model.Event) int {
	n := 0
	for _, e := range events {
		if e.HasLink() {
			n++
		}
	}
	return n
}

// MustTime parses an RFC 3339 string or panics.
func MustTime(s string) time.Time {
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
	return tm
}
