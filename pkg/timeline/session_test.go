package timeline

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/viewport"
)

func newSession(t *testing.T) (*Session, *[]Change) {
	t.Helper()
	s := NewSession(loadedEngine(t, nil), SessionOptions{})
	var changes []Change
	s.Subscribe(func(c Change) { changes = append(changes, c) })
	return s, &changes
}

func TestNewSessionSelectsFirstInitiative(t *testing.T) {
	s, _ := newSession(t)
	if s.InitiativeID() != "sl1" {
		t.Errorf("expected sl1, got %q", s.InitiativeID())
	}
	if !s.Focus().IsIdle() || s.Zoom() != 1 || s.Mode() != ModeDimOnly {
		t.Errorf("unexpected initial state: focus=%s zoom=%v mode=%s", s.Focus(), s.Zoom(), s.Mode())
	}
	s2 := NewSession(s.Engine(), SessionOptions{InitiativeID: "sl2", InitialZoom: 2})
	if s2.InitiativeID() != "sl2" || s2.Zoom() != 2 {
		t.Errorf("expected sl2 at zoom 2, got %q %v", s2.InitiativeID(), s2.Zoom())
	}
}

func TestSwitchingInitiativeResetsFocus(t *testing.T) {
	s, changes := newSession(t)
	s.RequestGeometry(800)
	s.Flush()
	if !s.Select("A") {
		t.Fatal("expected focus on A")
	}
	s.ZoomStep(viewport.In)
	s.ZoomStep(viewport.In)
	if s.Zoom() == 1 {
		t.Fatal("expected zoom to move off 1")
	}
	if err := s.SelectInitiative("sl2"); err != nil {
		t.Fatal(err)
	}
	if !s.Focus().IsIdle() {
		t.Errorf("expected Idle after switching initiative, got %s", s.Focus())
	}
	if s.Zoom() != 1 {
		t.Errorf("expected zoom back at 1, got %v", s.Zoom())
	}
	if want := s.Engine().Layout().CenterPan(len(s.Items()), 1, 800); s.Pan() != want {
		t.Errorf("expected centered pan %v, got %v", want, s.Pan())
	}
	last := (*changes)[len(*changes)-1]
	if last.Kind != ChangeInitiative || last.InitiativeID != "sl2" || !last.Focus.IsIdle() {
		t.Errorf("unexpected change %+v", last)
	}
	if err := s.SelectInitiative("nope"); !errors.Is(err, ErrUnknownInitiative) {
		t.Errorf("expected ErrUnknownInitiative, got %v", err)
	}
}

func TestSelectToggles(t *testing.T) {
	s, changes := newSession(t)
	s.Select("A")
	s.Select("A")
	if !s.Focus().IsIdle() {
		t.Errorf("expected Idle after reselect, got %s", s.Focus())
	}
	if s.Select("X") {
		t.Error("events from another initiative cannot be focused")
	}
	if len(*changes) != 2 {
		t.Errorf("expected 2 focus changes, got %d", len(*changes))
	}
	s.Select("A")
	s.Select("B")
	if s.Focus().EventID() != "B" {
		t.Errorf("expected focus to move to B, got %s", s.Focus())
	}
	if flags := s.FocusFlags(); !flags["A"].IsConnected || !flags["C"].IsDimmed {
		t.Errorf("unexpected flags %+v", flags)
	}
	if edges := s.Edges(); len(edges) != 1 {
		t.Errorf("expected 1 edge, got %v", edges)
	}
	if !s.Escape() || s.Escape() {
		t.Error("escape should clear focus once")
	}
}

func TestFramesCoalesceAndDiscardStale(t *testing.T) {
	s, changes := newSession(t)
	s.RequestGeometry(400)
	s.RequestGeometry(600)
	s.RequestGeometry(1000)
	if !s.Flush() {
		t.Fatal("expected a geometry change")
	}
	if s.ContainerWidth() != 1000 {
		t.Errorf("expected newest width 1000, got %v", s.ContainerWidth())
	}
	if s.Frames().Coalesced() != 2 {
		t.Errorf("expected 2 coalesced requests, got %d", s.Frames().Coalesced())
	}
	if s.Flush() {
		t.Error("nothing pending, flush should be a no-op")
	}

	s.RequestGeometry(1200)
	stale, _ := s.TakeFrame()
	s.RequestGeometry(1400)
	if s.ApplyFrame(stale) {
		t.Error("stale frame must be discarded")
	}
	if s.ContainerWidth() != 1000 {
		t.Errorf("stale frame changed width to %v", s.ContainerWidth())
	}
	s.Flush()
	if s.ContainerWidth() != 1400 {
		t.Errorf("expected 1400, got %v", s.ContainerWidth())
	}

	var geometry int
	for _, c := range *changes {
		if c.Kind == ChangeGeometry {
			geometry++
		}
	}
	if geometry != 2 {
		t.Errorf("expected 2 geometry notifications, got %d", geometry)
	}
}

func TestInitiativeSwitchCancelsPendingFrame(t *testing.T) {
	s, _ := newSession(t)
	s.RequestGeometry(1000)
	s.Flush()
	s.RequestGeometry(300)
	inflight, _ := s.TakeFrame()
	s.RequestGeometry(500)
	if err := s.SelectInitiative("sl2"); err != nil {
		t.Fatal(err)
	}
	if s.Frames().Pending() {
		t.Error("pending frame should be cancelled")
	}
	if s.ApplyFrame(inflight) {
		t.Error("in-flight frame for the previous initiative must be discarded")
	}
	if s.ContainerWidth() != 1000 {
		t.Errorf("expected width to stay 1000, got %v", s.ContainerWidth())
	}
}

func TestViewportNotifications(t *testing.T) {
	s, changes := newSession(t)
	s.RequestGeometry(1000)
	s.Flush()
	*changes = nil

	s.ZoomStep(viewport.In)
	s.Wheel(50, false)
	s.Drag(1e9)
	s.Drag(1e9)
	if len(*changes) != 3 {
		t.Errorf("expected 3 viewport changes (second drag is clamped), got %d", len(*changes))
	}
	for _, c := range *changes {
		if c.Kind != ChangeViewport {
			t.Errorf("unexpected change kind %s", c.Kind)
		}
	}
	if s.Pan() != s.DragBounds().Right {
		t.Errorf("expected pan at right bound, got %v", s.Pan())
	}
}

func TestScrollToToday(t *testing.T) {
	s, _ := newSession(t)
	s.RequestGeometry(1000)
	s.Flush()
	s.ScrollToToday(testNow)
	want := s.Engine().Layout().PanToIndex(2, 4, 1, 1000)
	if s.Pan() != want {
		t.Errorf("expected pan %v centering C, got %v", want, s.Pan())
	}
}

func TestStepInitiativeWraps(t *testing.T) {
	s, _ := newSession(t)
	if err := s.StepInitiative(-1); err != nil || s.InitiativeID() != "sl2" {
		t.Errorf("expected wrap to sl2, got %q %v", s.InitiativeID(), err)
	}
	s.StepInitiative(1)
	if s.InitiativeID() != "sl1" {
		t.Errorf("expected sl1, got %q", s.InitiativeID())
	}
}

func TestReloadReconciles(t *testing.T) {
	s, changes := newSession(t)
	s.SelectInitiative("sl2")
	s.Select("X")

	p := fixture()
	p.Events = p.Events[:4]
	if err := s.Reload(p); err != nil {
		t.Fatal(err)
	}
	if !s.Focus().IsIdle() {
		t.Errorf("focus on a removed event should clear, got %s", s.Focus())
	}

	s.ZoomStep(viewport.Out)
	p.Initiatives = []model.Initiative{{ID: "sl1", Name: "Checkout rewrite"}}
	if err := s.Reload(p); err != nil {
		t.Fatal(err)
	}
	if s.InitiativeID() != "sl1" {
		t.Errorf("expected fallback to sl1, got %q", s.InitiativeID())
	}
	if s.Zoom() != 1 {
		t.Errorf("expected fallback to restore zoom 1, got %v", s.Zoom())
	}
	if len(s.Items()) != 4 {
		t.Errorf("expected 4 items, got %d", len(s.Items()))
	}
	if last := (*changes)[len(*changes)-1]; last.Kind != ChangeData {
		t.Errorf("expected data change, got %s", last.Kind)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewSession(loadedEngine(t, nil), SessionOptions{})
	n := 0
	stop := s.Subscribe(func(Change) { n++ })
	s.Select("A")
	stop()
	s.Select("A")
	if n != 1 {
		t.Errorf("expected 1 notification, got %d", n)
	}
}

func TestToggleMode(t *testing.T) {
	s, _ := newSession(t)
	s.ToggleMode()
	if s.Mode() != ModeDimWithLines || len(s.Edges()) != 1 {
		t.Errorf("expected dim-with-lines with 1 edge, got %s %v", s.Mode(), s.Edges())
	}
	s.ToggleMode()
	if s.Mode() != ModeDimOnly || len(s.Edges()) != 0 {
		t.Errorf("expected dim-only with no edges, got %s %v", s.Mode(), s.Edges())
	}
}
