package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/connection"
	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/focus"
	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/viewport"
)

// ChangeKind names the transition that produced a Change.
type ChangeKind int

const (
	ChangeInitiative ChangeKind = iota + 1
	ChangeFocus
	ChangeViewport
	ChangeGeometry
	ChangeMode
	ChangeData
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInitiative:
		return "initiative"
	case ChangeFocus:
		return "focus"
	case ChangeViewport:
		return "viewport"
	case ChangeGeometry:
		return "geometry"
	case ChangeMode:
		return "mode"
	case ChangeData:
		return "data"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a state transition.
type Change struct {
	Kind         ChangeKind
	InitiativeID string
	Focus        focus.State
	Zoom         float64
	Pan          float64
}

// SessionOptions configure a Session.
type SessionOptions struct {
	// InitiativeID is selected first; empty selects the first initiative.
	InitiativeID   string
	InitialZoom    float64
	WheelPanFactor float64
	Mode           VisualizationMode
}

// Session owns the interactive state of one timeline view: the selected
// initiative, focus, zoom and pan. It is not safe for concurrent use.
type Session struct {
	engine   *Engine
	focus    focus.Controller
	viewport *viewport.Controller
	frames   FrameCoalescer

	initiativeID string
	items        []layout.Item
	mode         VisualizationMode

	subs    map[int]func(Change)
	nextSub int
}

// NewSession opens a session over engine. An unknown opts.InitiativeID falls
// back to the first initiative.
func NewSession(engine *Engine, opts SessionOptions) *Session {
	mode := opts.Mode
	if mode == "" {
		mode = ModeDimOnly
	}
	s := &Session{
		engine:   engine,
		viewport: viewport.New(engine.Layout(), opts.InitialZoom, opts.WheelPanFactor),
		mode:     mode,
		subs:     make(map[int]func(Change)),
	}
	id := opts.InitiativeID
	if !engine.HasInitiative(id) {
		id = firstInitiative(engine)
	}
	s.initiativeID = id
	s.items, _ = engine.Items(id)
	return s
}

func firstInitiative(e *Engine) string {
	if inits := e.Initiatives(); len(inits) > 0 {
		return inits[0].ID
	}
	return ""
}

// Engine returns the underlying engine.
func (s *Session) Engine() *Engine { return s.engine }

// InitiativeID returns the selected initiative, "" when none is loaded.
func (s *Session) InitiativeID() string { return s.initiativeID }

// Initiative returns the selected initiative.
func (s *Session) Initiative() (model.Initiative, bool) {
	in, err := s.engine.Initiative(s.initiativeID)
	return in, err == nil
}

// Items returns the selected initiative's events in layout order.
func (s *Session) Items() []layout.Item { return s.items }

// Focus returns the focus state.
func (s *Session) Focus() focus.State { return s.focus.State() }

// Mode returns the visualization mode.
func (s *Session) Mode() VisualizationMode { return s.mode }

// Zoom returns the current zoom factor.
func (s *Session) Zoom() float64 { return s.viewport.Zoom() }

// Pan returns the current pan offset.
func (s *Session) Pan() float64 { return s.viewport.Pan() }

// ContainerWidth returns the last applied container width.
func (s *Session) ContainerWidth() float64 { return s.viewport.ContainerWidth() }

// DragBounds returns the current pan range.
func (s *Session) DragBounds() layout.Bounds { return s.viewport.Bounds() }

// Frames exposes the frame coalescer counters.
func (s *Session) Frames() *FrameCoalescer { return &s.frames }

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Session) Subscribe(fn func(Change)) func() {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Session) emit(kind ChangeKind) {
	c := Change{
		Kind:         kind,
		InitiativeID: s.initiativeID,
		Focus:        s.focus.State(),
		Zoom:         s.viewport.Zoom(),
		Pan:          s.viewport.Pan(),
	}
	debug.Log("session: %s initiative=%s focus=%s zoom=%.3f pan=%.1f", kind, c.InitiativeID, c.Focus, c.Zoom, c.Pan)
	for _, id := range sortedSubIDs(s.subs) {
		s.subs[id](c)
	}
}

func sortedSubIDs(m map[int]func(Change)) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectInitiative switches to id. Focus is reset to Idle and any pending
// geometry recomputation for the previous initiative is abandoned. Selecting
// the current initiative is a no-op.
func (s *Session) SelectInitiative(id string) error {
	if !s.engine.HasInitiative(id) {
		return fmt.Errorf("%w: %s", ErrUnknownInitiative, id)
	}
	if id == s.initiativeID {
		return nil
	}
	s.frames.Cancel()
	s.focus.ChangeInitiative()
	s.initiativeID = id
	s.items, _ = s.engine.Items(id)
	width := s.viewport.ContainerWidth()
	s.viewport.Reset()
	s.viewport.SetGeometry(width, len(s.items))
	s.emit(ChangeInitiative)
	return nil
}

// StepInitiative selects the initiative delta positions away, wrapping.
func (s *Session) StepInitiative(delta int) error {
	inits := s.engine.Initiatives()
	if len(inits) == 0 {
		return nil
	}
	cur := 0
	for i, in := range inits {
		if in.ID == s.initiativeID {
			cur = i
			break
		}
	}
	next := ((cur+delta)%len(inits) + len(inits)) % len(inits)
	return s.SelectInitiative(inits[next].ID)
}

// Select toggles focus on eventID. Ids outside the selected initiative are
// ignored.
func (s *Session) Select(eventID string) bool {
	if _, ok := s.engine.Event(s.initiativeID, eventID); !ok {
		return false
	}
	if !s.focus.Select(eventID) {
		return false
	}
	s.emit(ChangeFocus)
	return true
}

// Escape leaves focus mode.
func (s *Session) Escape() bool {
	if !s.focus.Escape() {
		return false
	}
	s.emit(ChangeFocus)
	return true
}

// SetMode changes the visualization mode.
func (s *Session) SetMode(m VisualizationMode) bool {
	if m == s.mode {
		return false
	}
	s.mode = m
	s.emit(ChangeMode)
	return true
}

// ToggleMode flips between the two visualization modes.
func (s *Session) ToggleMode() {
	if s.mode == ModeDimWithLines {
		s.SetMode(ModeDimOnly)
		return
	}
	s.SetMode(ModeDimWithLines)
}

func (s *Session) viewportChanged(changed bool) bool {
	if changed {
		s.emit(ChangeViewport)
	}
	return changed
}

// ZoomStep zooms one step and re-centers.
func (s *Session) ZoomStep(d viewport.Direction) bool {
	return s.viewportChanged(s.viewport.OnZoomStep(d))
}

// Wheel forwards a wheel event to the viewport.
func (s *Session) Wheel(deltaY float64, modifier bool) bool {
	return s.viewportChanged(s.viewport.OnWheel(deltaY, modifier))
}

// Drag pans by dx.
func (s *Session) Drag(dx float64) bool {
	return s.viewportChanged(s.viewport.OnDragDelta(dx))
}

// ScrollToIndex centers event i.
func (s *Session) ScrollToIndex(i int) bool {
	return s.viewportChanged(s.viewport.ScrollToIndex(i))
}

// ScrollToToday centers the event nearest to now.
func (s *Session) ScrollToToday(now time.Time) bool {
	return s.viewportChanged(s.viewport.ScrollToToday(s.items, now))
}

// RequestGeometry records a container resize for the next frame.
func (s *Session) RequestGeometry(containerWidth float64) uint64 {
	return s.frames.Request(s.initiativeID, containerWidth)
}

// TakeFrame removes the pending frame so it can be computed elsewhere and
// handed back to ApplyFrame.
func (s *Session) TakeFrame() (Frame, bool) {
	return s.frames.Take()
}

// ApplyFrame applies fr unless a newer request or an initiative switch has
// superseded it.
func (s *Session) ApplyFrame(fr Frame) bool {
	if !s.frames.Current(fr.Generation) || fr.InitiativeID != s.initiativeID {
		debug.Log("session: discarded stale frame %d", fr.Generation)
		return false
	}
	if !s.viewport.SetGeometry(fr.ContainerWidth, len(s.items)) {
		return false
	}
	s.emit(ChangeGeometry)
	return true
}

// Flush applies the newest pending frame, if any.
func (s *Session) Flush() bool {
	fr, ok := s.frames.Take()
	if !ok {
		return false
	}
	return s.ApplyFrame(fr)
}

// Reload reads p into the engine and reconciles the session with the new
// data: a vanished initiative falls back to the first one and a vanished
// focused event clears focus.
func (s *Session) Reload(p Provider) error {
	if err := s.engine.Load(p); err != nil {
		return err
	}
	s.Sync()
	return nil
}

// Sync reconciles the session after the engine's data changed.
func (s *Session) Sync() {
	if !s.engine.HasInitiative(s.initiativeID) {
		s.frames.Cancel()
		s.focus.ChangeInitiative()
		s.initiativeID = firstInitiative(s.engine)
		s.viewport.Reset()
	}
	s.items, _ = s.engine.Items(s.initiativeID)
	if st := s.focus.State(); !st.IsIdle() {
		if _, ok := s.engine.Event(s.initiativeID, st.EventID()); !ok {
			s.focus.Escape()
		}
	}
	s.viewport.SetGeometry(s.viewport.ContainerWidth(), len(s.items))
	s.emit(ChangeData)
}

// Positions returns the x of every event at the current zoom.
func (s *Session) Positions() map[string]float64 {
	return s.engine.Layout().Positions(layout.Events(s.items), s.viewport.Zoom())
}

// FocusFlags returns the per-event flags for the current focus.
func (s *Session) FocusFlags() map[string]focus.Flags {
	flags, _ := s.engine.FocusFlags(s.initiativeID, s.focus.State().EventID())
	return flags
}

// Edges returns the connection edges for the current mode and focus.
func (s *Session) Edges() []connection.Edge {
	edges, _ := s.engine.ConnectionEdges(s.initiativeID, s.mode, s.focus.State().EventID())
	return edges
}

// View assembles the render model for the current state.
func (s *Session) View(now time.Time) (View, error) {
	return s.engine.View(s.initiativeID, ViewRequest{
		Zoom:           s.viewport.Zoom(),
		Pan:            s.viewport.Pan(),
		ContainerWidth: s.viewport.ContainerWidth(),
		FocusedEventID: s.focus.State().EventID(),
		Mode:           s.mode,
		Now:            now,
	})
}
