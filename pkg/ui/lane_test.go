package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

var testNow = time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testProvider() *timeline.MemoryProvider {
	return timeline.NewMemoryProvider(
		[]model.Initiative{
			{ID: "sl1", Name: "Checkout rewrite", Status: model.StatusOnTrack},
			{ID: "sl2", Name: "Data residency", Status: model.StatusDelayed},
		},
		[]model.Event{
			{ID: "A", InitiativeID: "sl1", Type: model.EventDecision, Title: "Pick vendor", Timestamp: "Jan 30", LinkedEventID: "B"},
			{ID: "B", InitiativeID: "sl1", Type: model.EventCommitment, Title: "Sign contract", Timestamp: "Jan 20", Criticality: model.CriticalityUrgent},
			{ID: "C", InitiativeID: "sl1", Type: model.EventMeeting, Title: "Weekly sync", Timestamp: "Today"},
			{ID: "X", InitiativeID: "sl2", Type: model.EventDocument, Title: "Policy", Timestamp: "2026-01-28"},
		},
	)
}

func testEngine(t *testing.T) *timeline.Engine {
	t.Helper()
	e := timeline.NewEngine(timeline.Options{ContextYear: 2026, Now: fixedNow})
	if err := e.Load(testProvider()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func testLaneView(t *testing.T, focused string, mode timeline.VisualizationMode) (timeline.View, *timeline.Engine) {
	t.Helper()
	e := testEngine(t)
	v, err := e.View("sl1", timeline.ViewRequest{
		Zoom:           1,
		ContainerWidth: 960,
		FocusedEventID: focused,
		Mode:           mode,
		Now:            testNow,
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return v, e
}

func runeAt(s string, i int) rune {
	r := []rune(s)
	if i < 0 || i >= len(r) {
		return 0
	}
	return r[i]
}

func TestRenderLaneCards(t *testing.T) {
	v, e := testLaneView(t, "", timeline.ModeDimOnly)
	c := renderLane(v, e.Layout(), TestTheme(), 120, 8, 0, testNow)

	g := newLaneGeometry(e.Layout().Config(), 8, v.Pan)
	if g.cardCols != 32 {
		t.Fatalf("expected 32 card columns, got %d", g.cardCols)
	}
	// B is first and under the cursor.
	b := g.col(v.Items[0].X)
	if got := runeAt(c.plain(curveRows), b); got != '┏' {
		t.Errorf("expected heavy corner for cursor card, got %q", got)
	}
	a := g.col(v.Items[1].X)
	if got := runeAt(c.plain(curveRows), a); got != '╭' {
		t.Errorf("expected rounded corner, got %q", got)
	}
	if !strings.Contains(c.plain(curveRows+1), "Sign contract") {
		t.Errorf("expected title in card row, got %q", c.plain(curveRows+1))
	}
	if !strings.Contains(c.plain(curveRows+2), "Jan 20") {
		t.Errorf("expected date in card row, got %q", c.plain(curveRows+2))
	}
	if !strings.Contains(c.plain(curveRows+cardRows-1), "THIS WEEK") {
		t.Errorf("expected week label on bottom border, got %q", c.plain(curveRows+cardRows-1))
	}

	axis := curveRows + cardRows
	if got := runeAt(c.plain(axis), g.center(v.Items[0].X)); got != '┼' {
		t.Errorf("expected cursor tick on axis, got %q", got)
	}
	if got := runeAt(c.plain(axis+1), g.center(v.Items[0].X)); got != '▲' {
		t.Errorf("expected cursor marker, got %q", got)
	}

	// Idle dim-only draws no arcs.
	for y := 0; y < curveRows; y++ {
		if strings.TrimSpace(c.plain(y)) != "" {
			t.Errorf("expected empty curve row %d, got %q", y, c.plain(y))
		}
	}
}

func TestRenderLaneFocusWithLines(t *testing.T) {
	v, e := testLaneView(t, "A", timeline.ModeDimWithLines)
	c := renderLane(v, e.Layout(), TestTheme(), 120, 8, 0, testNow)
	g := newLaneGeometry(e.Layout().Config(), 8, v.Pan)

	a := g.col(v.Items[1].X)
	if got := runeAt(c.plain(curveRows), a); got != '╔' {
		t.Errorf("expected double border on focused card, got %q", got)
	}
	// The arc A -> B ends in an arrow above B.
	if got := runeAt(c.plain(curveRows-1), g.center(v.Items[0].X)); got != '▼' {
		t.Errorf("expected arrow above B, got %q", got)
	}
	found := false
	for y := 0; y < curveRows; y++ {
		if strings.ContainsRune(c.plain(y), '╭') {
			found = true
		}
	}
	if !found {
		t.Error("expected an arc corner in the curve rows")
	}
}

func TestRenderLaneClipsOffscreenCards(t *testing.T) {
	v, e := testLaneView(t, "", timeline.ModeDimOnly)
	v.Pan = -10000
	c := renderLane(v, e.Layout(), TestTheme(), 40, 8, -1, testNow)
	for y := curveRows; y < curveRows+cardRows; y++ {
		if strings.TrimSpace(c.plain(y)) != "" {
			t.Errorf("expected nothing drawn at row %d, got %q", y, c.plain(y))
		}
	}
}

func TestRenderWeeks(t *testing.T) {
	v, _ := testLaneView(t, "A", timeline.ModeDimOnly)
	if len(v.Weeks) != 8 {
		t.Fatalf("expected 8 week buckets, got %d", len(v.Weeks))
	}
	c := renderWeeks(v, TestTheme(), 160, 10, "C")

	if !strings.Contains(c.plain(0), "THIS WEEK") {
		t.Errorf("expected THIS WEEK label, got %q", c.plain(0))
	}
	var all []string
	for y := 0; y < 10; y++ {
		all = append(all, c.plain(y))
	}
	text := strings.Join(all, "\n")
	for _, want := range []string{"◉ Pick vendor", "◎ Sign contract", "› Weekly sync"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in week view:\n%s", want, text)
		}
	}
}

func TestRenderWeeksOverflow(t *testing.T) {
	v, _ := testLaneView(t, "", timeline.ModeDimOnly)
	// Cram every event into one bucket and leave room for only one line.
	var evs []model.Event
	for _, it := range v.Items {
		evs = append(evs, it.Event)
	}
	v.Weeks = v.Weeks[:1]
	v.Weeks[0].Events = evs
	c := renderWeeks(v, TestTheme(), 40, 4, "")
	if !strings.Contains(c.plain(3), "+2 more") {
		t.Errorf("expected overflow marker, got %q", c.plain(3))
	}
}
