package connection

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

func ev(id, initiative, link string) model.Event {
	return model.Event{ID: id, InitiativeID: initiative, LinkedEventID: link, Timestamp: "Today"}
}

func TestConnectedIDsDirectAndReverse(t *testing.T) {
	events := []model.Event{
		ev("A", "sl1", "B"),
		ev("B", "sl1", ""),
		ev("C", "sl1", ""),
	}
	g := New(events)

	got := g.ConnectedIDs("A", "sl1")
	if len(got) != 1 || !got["B"] {
		t.Errorf("expected {B}, got %v", SortedIDs(got))
	}
	got = g.ConnectedIDs("B", "sl1")
	if len(got) != 1 || !got["A"] {
		t.Errorf("expected {A} via reverse lookup, got %v", SortedIDs(got))
	}
	if got := g.ConnectedIDs("C", "sl1"); len(got) != 0 {
		t.Errorf("expected no connections for C, got %v", SortedIDs(got))
	}
}

func TestConnectedIDsIsNotTransitive(t *testing.T) {
	events := []model.Event{
		ev("A", "sl1", "B"),
		ev("B", "sl1", "C"),
		ev("C", "sl1", ""),
	}
	got := ConnectedIDs("A", events, "sl1")
	if len(got) != 1 || !got["B"] {
		t.Errorf("expected {B}, got %v", SortedIDs(got))
	}
	got = ConnectedIDs("B", events, "sl1")
	if len(got) != 2 || !got["A"] || !got["C"] {
		t.Errorf("expected {A C}, got %v", SortedIDs(got))
	}
}

func TestConnectedIDsManyReverseLinks(t *testing.T) {
	events := []model.Event{
		ev("hub", "sl1", ""),
		ev("a", "sl1", "hub"),
		ev("b", "sl1", "hub"),
		ev("c", "sl1", "hub"),
	}
	got := ConnectedIDs("hub", events, "sl1")
	if fmt.Sprint(SortedIDs(got)) != "[a b c]" {
		t.Errorf("expected [a b c], got %v", SortedIDs(got))
	}
}

func TestConnectedIDsScopedToInitiative(t *testing.T) {
	var c diag.Collector
	events := []model.Event{
		ev("A", "sl1", "X"),
		ev("X", "sl2", ""),
		ev("Y", "sl2", "A"),
	}
	g := NewWithHook(events, c.Hook())

	if got := g.ConnectedIDs("A", "sl1"); len(got) != 0 {
		t.Errorf("cross-initiative links must not surface, got %v", SortedIDs(got))
	}
	if got := g.ConnectedIDs("X", "sl2"); len(got) != 0 {
		t.Errorf("expected nothing for X in sl2, got %v", SortedIDs(got))
	}
	if c.Count(diag.CrossInitiativeLink) != 2 {
		t.Errorf("expected 2 cross-initiative diagnostics, got %d", c.Count(diag.CrossInitiativeLink))
	}
	if len(g.Edges("sl1")) != 0 || len(g.Edges("sl2")) != 0 {
		t.Errorf("expected no in-initiative edges")
	}
}

func TestDanglingLinkIsOmitted(t *testing.T) {
	var c diag.Collector
	events := []model.Event{
		ev("A", "sl1", "ghost"),
		ev("B", "sl1", ""),
	}
	g := NewWithHook(events, c.Hook())

	if got := g.ConnectedIDs("A", "sl1"); len(got) != 0 {
		t.Errorf("expected empty set, got %v", SortedIDs(got))
	}
	if c.Count(diag.DanglingLink) != 1 {
		t.Errorf("expected 1 dangling diagnostic, got %d", c.Count(diag.DanglingLink))
	}
	if len(g.Dropped()) != 1 || g.Dropped()[0].Raw != "ghost" {
		t.Errorf("unexpected dropped links %+v", g.Dropped())
	}
	if _, ok := g.LinkedID("A"); ok {
		t.Error("dangling link should not resolve")
	}
}

func TestSelfLinkConnectsEventToItself(t *testing.T) {
	var c diag.Collector
	events := []model.Event{
		ev("A", "sl1", "A"),
		ev("B", "sl1", "A"),
		ev("C", "sl1", ""),
		ev("Z", "sl2", "Z"),
	}
	g := NewWithHook(events, c.Hook())

	got := g.ConnectedIDs("A", "sl1")
	if len(got) != 2 || !got["A"] || !got["B"] {
		t.Errorf("expected {A B}, got %v", SortedIDs(got))
	}
	if got := g.ConnectedIDs("B", "sl1"); len(got) != 1 || !got["A"] {
		t.Errorf("expected {A}, got %v", SortedIDs(got))
	}
	if !g.IsConnected("A", "A", "sl1") {
		t.Error("expected A connected to itself")
	}
	if got := g.ConnectedIDs("Z", "sl1"); len(got) != 0 {
		t.Errorf("expected no sl1 connections for Z, got %v", SortedIDs(got))
	}
	if id, ok := g.LinkedID("A"); !ok || id != "A" {
		t.Errorf("expected A -> A, got %q %v", id, ok)
	}
	if es := g.Edges("sl1"); len(es) != 1 || es[0] != (Edge{FromID: "B", ToID: "A"}) {
		t.Errorf("expected only B -> A as an edge, got %v", es)
	}
	if len(g.Dropped()) != 0 || len(c.All()) != 0 {
		t.Errorf("self links are not dropped, got %+v", g.Dropped())
	}
}

func TestUnknownFocusYieldsEmptySet(t *testing.T) {
	if got := ConnectedIDs("nope", []model.Event{ev("A", "sl1", "")}, "sl1"); len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
}

func TestDuplicateIDsFirstWins(t *testing.T) {
	var c diag.Collector
	events := []model.Event{
		ev("A", "sl1", "B"),
		ev("A", "sl1", "C"),
		ev("B", "sl1", ""),
		ev("C", "sl1", ""),
	}
	g := NewWithHook(events, c.Hook())
	if g.Len() != 3 {
		t.Errorf("expected 3 distinct events, got %d", g.Len())
	}
	if id, ok := g.LinkedID("A"); !ok || id != "B" {
		t.Errorf("expected A -> B, got %q %v", id, ok)
	}
	if c.Count(diag.DuplicateEventID) != 1 {
		t.Errorf("expected duplicate diagnostic")
	}
}

func TestEdgesAndEdgesTouching(t *testing.T) {
	events := []model.Event{
		ev("A", "sl1", "B"),
		ev("B", "sl1", ""),
		ev("C", "sl1", "B"),
		ev("D", "sl1", "A"),
	}
	g := New(events)

	all := g.Edges("sl1")
	if fmt.Sprint(all) != "[{A B} {C B} {D A}]" {
		t.Errorf("unexpected edges %v", all)
	}
	touching := g.EdgesTouching("A", "sl1")
	if fmt.Sprint(touching) != "[{A B} {D A}]" {
		t.Errorf("unexpected edges touching A %v", touching)
	}
	if !g.IsConnected("B", "C", "sl1") || g.IsConnected("C", "D", "sl1") {
		t.Error("IsConnected disagrees with the link set")
	}
}

func TestConnectionSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 30).Draw(t, "n")
		events := make([]model.Event, n)
		for i := 0; i < n; i++ {
			initiative := rapid.SampledFrom([]string{"sl1", "sl2"}).Draw(t, fmt.Sprintf("init%d", i))
			link := ""
			if rapid.Bool().Draw(t, fmt.Sprintf("haslink%d", i)) {
				link = fmt.Sprintf("e%d", rapid.IntRange(0, n).Draw(t, fmt.Sprintf("link%d", i)))
			}
			events[i] = ev(fmt.Sprintf("e%d", i), initiative, link)
		}
		g := New(events)

		for _, a := range events {
			if a.LinkedEventID == a.ID {
				if !g.ConnectedIDs(a.ID, a.InitiativeID)[a.ID] {
					t.Fatalf("self link of %s missing from connectedIds(%s)", a.ID, a.ID)
				}
				continue
			}
			if !a.HasLink() {
				continue
			}
			var b *model.Event
			for i := range events {
				if events[i].ID == a.LinkedEventID {
					b = &events[i]
				}
			}
			if b == nil || b.InitiativeID != a.InitiativeID {
				continue
			}
			if !g.ConnectedIDs(a.ID, a.InitiativeID)[b.ID] {
				t.Fatalf("%s -> %s missing from connectedIds(%s)", a.ID, b.ID, a.ID)
			}
			if !g.ConnectedIDs(b.ID, a.InitiativeID)[a.ID] {
				t.Fatalf("%s -> %s missing from connectedIds(%s)", a.ID, b.ID, b.ID)
			}
		}
	})
}
