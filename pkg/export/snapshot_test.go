package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

var testNow = time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)

func testView(t *testing.T, focused string, mode timeline.VisualizationMode) timeline.View {
	t.Helper()
	p := timeline.NewMemoryProvider(
		[]model.Initiative{{ID: "sl1", Name: "Checkout rewrite", Owner: "dana", Status: model.StatusOnTrack}},
		[]model.Event{
			{ID: "A", InitiativeID: "sl1", Type: model.EventDecision, Title: "Pick vendor", Timestamp: "Jan 30", LinkedEventID: "B"},
			{ID: "B", InitiativeID: "sl1", Type: model.EventCommitment, Title: "Sign contract", Timestamp: "Jan 20", Criticality: model.CriticalityUrgent},
			{ID: "C", InitiativeID: "sl1", Type: model.EventMeeting, Title: "Weekly sync", Timestamp: "Today"},
		},
	)
	e := timeline.NewEngine(timeline.Options{ContextYear: 2026, Now: func() time.Time { return testNow }})
	if err := e.Load(p); err != nil {
		t.Fatalf("load: %v", err)
	}
	v, err := e.View("sl1", timeline.ViewRequest{
		Zoom:           1,
		ContainerWidth: 900,
		FocusedEventID: focused,
		Mode:           mode,
		Now:            testNow,
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	return v
}

func TestSaveSnapshot_AllFormats(t *testing.T) {
	v := testView(t, "A", timeline.ModeDimWithLines)
	tmp := t.TempDir()

	for _, name := range []string{"timeline.svg", "timeline.png", "timeline.json"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(tmp, "nested", name)
			if err := SaveSnapshot(SnapshotOptions{Path: out, View: v}); err != nil {
				t.Fatalf("SaveSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveSnapshot_InvalidFormat(t *testing.T) {
	v := testView(t, "", timeline.ModeDimOnly)
	err := SaveSnapshot(SnapshotOptions{Path: filepath.Join(t.TempDir(), "t.txt"), Format: "txt", View: v})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestSaveSnapshot_MissingPath(t *testing.T) {
	v := testView(t, "", timeline.ModeDimOnly)
	if err := SaveSnapshot(SnapshotOptions{View: v}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, path string
		want         string
		wantPath     string
	}{
		{"", "out.svg", FormatSVG, "out.svg"},
		{"", "out.PNG", FormatPNG, "out.PNG"},
		{"", "out.json", FormatJSON, "out.json"},
		{"", "out", FormatSVG, "out.svg"},
		{".png", "out", FormatPNG, "out"},
		{"JSON", "x.svg", FormatJSON, "x.svg"},
	}
	for _, tc := range tests {
		got, path, err := ResolveFormat(tc.format, tc.path)
		if err != nil {
			t.Errorf("ResolveFormat(%q, %q) error: %v", tc.format, tc.path, err)
			continue
		}
		if got != tc.want || path != tc.wantPath {
			t.Errorf("ResolveFormat(%q, %q) = %q, %q; expected %q, %q", tc.format, tc.path, got, path, tc.want, tc.wantPath)
		}
	}
}

func TestWriteSVG_FocusState(t *testing.T) {
	v := testView(t, "A", timeline.ModeDimWithLines)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{View: v}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// C is neither focused nor connected to A.
	if got := strings.Count(out, "opacity:0.35"); got != 1 {
		t.Errorf("expected exactly one dimmed card group, got %d", got)
	}
	if !strings.Contains(out, " Q ") {
		t.Error("expected a quadratic connection curve in the SVG")
	}
	for _, want := range []string{"Checkout rewrite", "Pick vendor", "THIS WEEK", "focus: A"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected SVG to contain %q", want)
		}
	}
}

func TestWriteSVG_IdleDimOnlyHasNoCurves(t *testing.T) {
	v := testView(t, "", timeline.ModeDimOnly)
	var buf bytes.Buffer
	if err := WriteSVG(&buf, SnapshotOptions{View: v}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, " Q ") {
		t.Error("expected no curves while idle in dim-only mode")
	}
	if strings.Contains(out, "opacity:0.35") {
		t.Error("expected nothing dimmed while idle")
	}
}

func TestBuildScene_GeometryFollowsView(t *testing.T) {
	v := testView(t, "A", timeline.ModeDimWithLines)
	s := buildScene(SnapshotOptions{View: v})

	if len(s.Cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(s.Cards))
	}
	if s.Cards[0].X != padding {
		t.Errorf("expected first card at %v, got %v", padding, s.Cards[0].X)
	}
	spread := s.Cards[1].X - s.Cards[0].X
	if spread != 280 {
		t.Errorf("expected spread 280 at zoom 1, got %v", spread)
	}
	if len(s.Curves) != 1 {
		t.Fatalf("expected 1 curve, got %d", len(s.Curves))
	}
	c := s.Curves[0]
	if !c.Active {
		t.Error("expected the curve touching the focused event to be active")
	}
	if apex := c.Path.Apex(); apex.Y >= s.Baseline {
		t.Errorf("expected curve apex above baseline %v, got %v", s.Baseline, apex.Y)
	}
	if s.Width < 640 {
		t.Errorf("expected minimum width 640, got %d", s.Width)
	}
}

func TestWriteJSON_RoundTripsView(t *testing.T) {
	v := testView(t, "B", timeline.ModeDimOnly)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, v); err != nil {
		t.Fatal(err)
	}
	var got timeline.View
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.FocusedEventID != "B" || len(got.Items) != 3 || len(got.Edges) != 1 {
		t.Errorf("unexpected decoded view: focus=%q items=%d edges=%d", got.FocusedEventID, len(got.Items), len(got.Edges))
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title", 8, "a lon..."},
		{"abc", 2, "ab"},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tc.in, tc.max, got, tc.want)
		}
	}
}
