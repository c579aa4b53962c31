package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()

	tests := []struct {
		name      string
		size      int
		wantLinks int
	}{
		{"chain_1", 1, 0},
		{"chain_2", 2, 1},
		{"chain_5", 5, 4},
		{"chain_10", 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lf := gen.Chain(tt.size)
			if len(lf.Nodes) != tt.size {
				t.Errorf("expected %d nodes, got %d", tt.size, len(lf.Nodes))
			}
			if len(lf.Links) != tt.wantLinks {
				t.Errorf("expected %d links, got %d", tt.wantLinks, len(lf.Links))
			}
			if lf.Properties.HasCycles {
				t.Error("chain should not have cycles")
			}
			for i, l := range lf.Links {
				if l[0] != i+1 || l[1] != i {
					t.Errorf("link %d: expected [%d,%d], got [%d,%d]", i, i+1, i, l[0], l[1])
				}
			}
		})
	}
}

func TestStar(t *testing.T) {
	lf := NewDefault().Star(4)
	if len(lf.Nodes) != 5 || len(lf.Links) != 4 {
		t.Fatalf("expected 5 nodes and 4 links, got %d and %d", len(lf.Nodes), len(lf.Links))
	}
	for _, l := range lf.Links {
		if l[1] != 0 {
			t.Errorf("expected every spoke to link to the hub, got %v", l)
		}
	}
}

func TestCycleAndSelfLoop(t *testing.T) {
	gen := NewDefault()
	AssertHasCycle(t, gen.ToEvents(gen.Cycle(4)))
	AssertHasCycle(t, gen.ToEvents(gen.SelfLoop()))
	AssertNoCycles(t, gen.ToEvents(gen.Chain(4)))
}

func TestDisconnected(t *testing.T) {
	lf := NewDefault().Disconnected(3, 4)
	if len(lf.Nodes) != 12 {
		t.Errorf("expected 12 nodes, got %d", len(lf.Nodes))
	}
	if len(lf.Links) != 9 {
		t.Errorf("expected 9 links, got %d", len(lf.Links))
	}
	if lf.Properties.IsConnected {
		t.Error("three components should not be connected")
	}
}

func TestRandomForestHasNoCycles(t *testing.T) {
	gen := NewDefault()
	events := gen.ToEvents(gen.RandomForest(200, 0.8))
	AssertNoCycles(t, events)
	if LinkCount(events) == 0 {
		t.Error("expected some links at density 0.8")
	}
}

func TestToEvents(t *testing.T) {
	gen := NewDefault()
	events := gen.ToEvents(gen.Chain(5))

	AssertEventCount(t, events, 5)
	AssertNoDuplicateIDs(t, events)
	AssertAllValid(t, events)
	AssertLinkExists(t, events, "EV-1", "EV-0")
	AssertLinkExists(t, events, "EV-4", "EV-3")
	AssertTypeCounts(t, events, map[model.EventType]int{model.EventMeeting: 5})

	if got := CountByInitiative(events)["init-1"]; got != 5 {
		t.Errorf("expected 5 events in init-1, got %d", got)
	}
	if last := events[len(events)-1].Timestamp; last != "2026-02-02" {
		t.Errorf("expected the newest event on the base date, got %s", last)
	}
}

func TestToEventsKeepsTimelineOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Style = StyleRFC3339
	gen := New(cfg)
	events := gen.ToEvents(gen.Chain(50))

	prev := time.Time{}
	for _, e := range events {
		at := MustTime(e.Timestamp)
		if !at.After(prev) {
			t.Fatalf("expected %s after %s", at, prev)
		}
		prev = at
	}
}

func TestToEventsWithConfig(t *testing.T) {
	cfg := GeneratorConfig{
		Seed:           7,
		IDPrefix:       "ops",
		InitiativeID:   "sl9",
		Style:          StyleMonthDay,
		TypeMix:        []model.EventType{model.EventAlert, model.EventDecision},
		CriticalityMix: []model.Criticality{model.CriticalityUrgent},
		Shuffle:        true,
	}
	gen := New(cfg)
	events := gen.ToEvents(gen.Star(9))

	AssertAllValid(t, events)
	for _, e := range events {
		if !strings.HasPrefix(e.ID, "ops-") || e.InitiativeID != "sl9" {
			t.Errorf("unexpected identity %s/%s", e.ID, e.InitiativeID)
		}
		if e.Criticality != model.CriticalityUrgent {
			t.Errorf("expected urgent criticality, got %q", e.Criticality)
		}
		if _, err := time.Parse("Jan 2", e.Timestamp); err != nil {
			t.Errorf("expected a month-day timestamp, got %q", e.Timestamp)
		}
	}
	counts := CountByType(events)
	if counts[model.EventAlert]+counts[model.EventDecision] != 10 {
		t.Errorf("unexpected type mix %v", counts)
	}
}

func TestDataset(t *testing.T) {
	inits, events := QuickDataset(3, 20)
	if len(inits) != 3 {
		t.Fatalf("expected 3 initiatives, got %d", len(inits))
	}
	AssertEventCount(t, events, 60)
	AssertNoDuplicateIDs(t, events)
	AssertNoCycles(t, events)

	byID := BuildEventMap(events)
	for _, e := range events {
		if !e.HasLink() {
			continue
		}
		target, ok := byID[e.LinkedEventID]
		if !ok {
			t.Errorf("%s links to missing %s", e.ID, e.LinkedEventID)
			continue
		}
		if target.InitiativeID != e.InitiativeID {
			t.Errorf("%s links across initiatives to %s", e.ID, target.ID)
		}
	}
	for _, in := range inits {
		if err := in.Validate(); err != nil {
			t.Errorf("invalid initiative: %v", err)
		}
	}
}

func TestToJSONL(t *testing.T) {
	events := QuickChain(3)
	out := ToJSONL(events)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	var e model.Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("line 2 is not an event: %v", err)
	}
	if e.ID != "EV-1" || e.LinkedEventID != "EV-0" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestWriteDataDir(t *testing.T) {
	inits, events := QuickDataset(2, 3)
	dir := WriteDataDir(t, inits, events)
	for name, want := range map[string]int{"initiatives.jsonl": 2, "events.jsonl": 6} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if got := strings.Count(string(raw), "\n"); got != want {
			t.Errorf("%s: expected %d lines, got %d", name, want, got)
		}
	}
}

func TestQuickFunctions(t *testing.T) {
	if got := len(QuickChain(4)); got != 4 {
		t.Errorf("QuickChain: expected 4, got %d", got)
	}
	if got := len(QuickStar(3)); got != 4 {
		t.Errorf("QuickStar: expected 4, got %d", got)
	}
	AssertHasCycle(t, QuickCycle(3))
	if len(Empty()) != 0 {
		t.Error("Empty should be empty")
	}
	single := Single()
	AssertAllValid(t, single)
	if single[0].HasLink() {
		t.Error("Single should not link anywhere")
	}
}

func TestDeterminism(t *testing.T) {
	a := NewDefault()
	b := NewDefault()
	AssertJSONEqual(t, a.ToEvents(a.RandomForest(30, 0.5)), b.ToEvents(b.RandomForest(30, 0.5)))
}

func BenchmarkToEvents1000(b *testing.B) {
	gen := NewDefault()
	lf := gen.RandomForest(1000, 0.4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = gen.ToEvents(lf)
	}
}

func BenchmarkToJSONL1000(b *testing.B) {
	events := QuickChain(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ToJSONL(events)
	}
}
