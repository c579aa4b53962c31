// Package ui is the interactive terminal front end: a Bubble Tea program
// drawing one initiative's swimlane at a time, either as a zoomable
// continuous lane or as eight week columns.
package ui

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
	"github.com/vanderheijden86/swimlane/pkg/viewport"
)

// ViewKind selects how the lane is drawn.
type ViewKind int

const (
	ViewContinuous ViewKind = iota
	ViewWeeks
)

func (k ViewKind) String() string {
	if k == ViewWeeks {
		return "weeks"
	}
	return "continuous"
}

// ParseViewKind parses "continuous" or "weeks". Empty selects ViewContinuous.
func ParseViewKind(s string) (ViewKind, error) {
	switch s {
	case "", "continuous":
		return ViewContinuous, nil
	case "weeks":
		return ViewWeeks, nil
	}
	return ViewContinuous, fmt.Errorf("unknown view %q (want continuous or weeks)", s)
}

// Defaults for Options.
const (
	DefaultCellWidthPx   = 8.0
	DefaultFrameInterval = 16 * time.Millisecond
)

// Rows above the lane body: title bar and info line.
const headerRows = 2

// Options configure the TUI.
type Options struct {
	Session *timeline.Session
	// Worker reloads data in the background. Optional.
	Worker *ReloadWorker
	// CellWidthPx is how many layout pixels one terminal column stands for.
	CellWidthPx float64
	// FrameInterval is how long geometry requests are coalesced before the
	// layout is recomputed.
	FrameInterval time.Duration
	View          ViewKind
	Now           func() time.Time
	// SourceLabel names the data source in the info line.
	SourceLabel string
}

type frameMsg struct{}

// changeLog collects session changes between updates.
type changeLog struct {
	kinds []timeline.ChangeKind
}

func (c *changeLog) record(ch timeline.Change) { c.kinds = append(c.kinds, ch.Kind) }

func (c *changeLog) drain() []timeline.ChangeKind {
	out := c.kinds
	c.kinds = nil
	return out
}

// Model is the Bubble Tea model of the timeline.
type Model struct {
	session *timeline.Session
	worker  *ReloadWorker
	keys    KeyMap
	theme   Theme
	detail  *detailPane
	changes *changeLog
	unsub   func()

	now           func() time.Time
	cellPx        float64
	frameInterval time.Duration
	source        string

	width, height  int
	ready          bool
	frameScheduled bool
	view           ViewKind
	showDetail     bool
	cursor         int

	dragging  bool
	dragMoved bool
	dragX     int

	statusMsg     string
	statusIsError bool
}

// NewModel builds the model. opts.Session is required.
func NewModel(opts Options) Model {
	if opts.CellWidthPx <= 0 {
		opts.CellWidthPx = DefaultCellWidthPx
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	changes := &changeLog{}
	m := Model{
		session:       opts.Session,
		worker:        opts.Worker,
		keys:          DefaultKeyMap(),
		theme:         DefaultTheme(lipgloss.DefaultRenderer()),
		detail:        newDetailPane(80, 10),
		changes:       changes,
		now:           opts.Now,
		cellPx:        opts.CellWidthPx,
		frameInterval: opts.FrameInterval,
		source:        opts.SourceLabel,
		view:          opts.View,
	}
	m.unsub = opts.Session.Subscribe(changes.record)
	return m
}

// Init starts the reload worker, if any.
func (m Model) Init() tea.Cmd {
	if m.worker == nil {
		return nil
	}
	return tea.Batch(StartWorkerCmd(m.worker), WaitForWorkerMsgCmd(m.worker))
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.session.RequestGeometry(float64(m.width) * m.cellPx)
		m.detail.resize(m.width, m.detailHeight())
		cmds = append(cmds, m.scheduleFrame())

	case frameMsg:
		m.frameScheduled = false
		m.session.Flush()
		m.ready = true

	case DataReloadedMsg:
		if err := m.session.Reload(msg.Provider); err != nil {
			m.setError(fmt.Sprintf("reload failed: %v", err))
		} else {
			m.setStatus(fmt.Sprintf("Reloaded %d initiatives, %d events", msg.Initiatives, msg.Events))
		}
		cmds = append(cmds, WaitForWorkerMsgCmd(m.worker))

	case ReloadErrorMsg:
		if msg.Err != nil {
			m.setError(fmt.Sprintf("reload failed: %v", msg.Err))
		}
		cmds = append(cmds, WaitForWorkerMsgCmd(m.worker))

	case tea.MouseMsg:
		m = m.handleMouse(msg)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.applyChanges()
	return m, tea.Batch(cmds...)
}

// scheduleFrame arms one frame tick; further requests before it fires are
// coalesced by the session.
func (m *Model) scheduleFrame() tea.Cmd {
	if m.frameScheduled {
		return nil
	}
	m.frameScheduled = true
	return tea.Tick(m.frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *Model) applyChanges() {
	for _, k := range m.changes.drain() {
		switch k {
		case timeline.ChangeInitiative:
			m.cursor = 0
		case timeline.ChangeData:
			m.clampCursor()
		}
	}
	if m.showDetail {
		m.syncDetail()
	}
}

func (m *Model) clampCursor() {
	n := len(m.session.Items())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

func (m Model) panStep() float64 { return 4 * m.cellPx }

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	s := m.session
	items := s.Items()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.worker != nil {
			m.worker.Stop()
		}
		if m.unsub != nil {
			m.unsub()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.ZoomIn):
		s.ZoomStep(viewport.In)
	case key.Matches(msg, m.keys.ZoomOut):
		s.ZoomStep(viewport.Out)
	case key.Matches(msg, m.keys.PanLeft):
		s.Drag(m.panStep())
	case key.Matches(msg, m.keys.PanRight):
		s.Drag(-m.panStep())

	case key.Matches(msg, m.keys.Next):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Prev):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Focus):
		if m.cursor < len(items) {
			s.Select(items[m.cursor].Event.ID)
		}
	case key.Matches(msg, m.keys.Escape):
		if !s.Escape() && m.showDetail {
			m.showDetail = false
		}

	case key.Matches(msg, m.keys.NextLane):
		if err := s.StepInitiative(1); err != nil {
			m.setError(err.Error())
		}
	case key.Matches(msg, m.keys.PrevLane):
		if err := s.StepInitiative(-1); err != nil {
			m.setError(err.Error())
		}

	case key.Matches(msg, m.keys.Today):
		if len(items) > 0 {
			m.cursor = layout.NearestIndex(items, m.now())
			s.ScrollToToday(m.now())
		}
	case key.Matches(msg, m.keys.ToggleView):
		if m.view == ViewWeeks {
			m.view = ViewContinuous
		} else {
			m.view = ViewWeeks
		}
	case key.Matches(msg, m.keys.ToggleMode):
		s.ToggleMode()
		m.setStatus("Mode: " + string(s.Mode()))

	case key.Matches(msg, m.keys.Copy):
		md, ok := m.cursorMarkdown()
		if !ok {
			break
		}
		if err := clipboard.WriteAll(md); err != nil {
			m.setError(fmt.Sprintf("copy failed: %v", err))
		} else {
			m.setStatus("Copied " + items[m.cursor].Event.ID + " to clipboard")
		}

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail

	default:
		if m.showDetail {
			var cmd tea.Cmd
			m.detail.vp, cmd = m.detail.vp.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	n := len(m.session.Items())
	if n == 0 {
		return
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	m.session.ScrollToIndex(m.cursor)
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	s := m.session
	switch {
	case tea.MouseEvent(msg).IsWheel():
		delta := 0.0
		switch msg.Button {
		case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
			delta = -m.panStep()
		case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
			delta = m.panStep()
		}
		s.Wheel(delta, msg.Ctrl)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.dragging = true
		m.dragMoved = false
		m.dragX = msg.X

	case msg.Action == tea.MouseActionMotion && m.dragging:
		if dx := msg.X - m.dragX; dx != 0 {
			s.Drag(float64(dx) * m.cellPx)
			m.dragX = msg.X
			m.dragMoved = true
		}

	case msg.Action == tea.MouseActionRelease:
		if m.dragging && !m.dragMoved {
			if i := m.hitTest(msg.X, msg.Y); i >= 0 {
				m.cursor = i
				s.Select(s.Items()[i].Event.ID)
			}
		}
		m.dragging = false
	}
	return m
}

// hitTest returns the index of the card at terminal cell (x, y), or -1.
func (m Model) hitTest(x, y int) int {
	if m.view != ViewContinuous {
		return -1
	}
	row := y - headerRows
	if row < curveRows || row >= curveRows+cardRows {
		return -1
	}
	g := newLaneGeometry(m.session.Engine().Layout().Config(), m.cellPx, m.session.Pan())
	pos := m.session.Positions()
	for i, it := range m.session.Items() {
		c0 := g.col(pos[it.Event.ID])
		if x >= c0 && x < c0+g.cardCols {
			return i
		}
	}
	return -1
}

func (m Model) cursorMarkdown() (string, bool) {
	items := m.session.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return "", false
	}
	it := items[m.cursor]
	connected, _ := m.session.Engine().ConnectedIDs(m.session.InitiativeID(), it.Event.ID)
	return EventMarkdown(it.Event, it.Time, connected), true
}

func (m *Model) syncDetail() {
	items := m.session.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		m.detail.show("", "_No event selected._")
		return
	}
	md, _ := m.cursorMarkdown()
	m.detail.show(items[m.cursor].Event.ID, md)
}

func (m Model) detailHeight() int {
	h := m.height - headerRows - laneHeight - 2
	if h < 3 {
		h = 3
	}
	return h
}

// View renders the screen.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if m.width == 0 {
		return "Loading…"
	}
	t := m.theme

	in, ok := m.session.Initiative()
	if !ok {
		return lipgloss.JoinVertical(lipgloss.Left,
			t.Header.Render("swimlane"),
			t.Subtle.Render("No initiatives loaded."),
			m.footer())
	}

	v, err := m.session.View(m.now())
	if err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, t.StatusErr.Render(err.Error()), m.footer())
	}

	parts := []string{m.titleBar(in.Name, in.Status), m.infoLine(v)}

	bodyHeight := m.height - headerRows - 1
	if m.showDetail {
		bodyHeight = laneHeight
	}
	switch {
	case len(v.Items) == 0:
		parts = append(parts, t.Subtle.Render("No events for this initiative."))
	case !m.ready && m.view == ViewContinuous:
		parts = append(parts, t.Subtle.Render("Measuring…"))
	case m.view == ViewWeeks:
		cursorID := ""
		if m.cursor < len(v.Items) {
			cursorID = v.Items[m.cursor].Event.ID
		}
		parts = append(parts, renderWeeks(v, t, m.width, bodyHeight, cursorID).render())
	default:
		parts = append(parts, renderLane(v, m.session.Engine().Layout(), t, m.width, m.cellPx, m.cursor, v.Now).render())
	}

	if m.showDetail {
		parts = append(parts, m.detail.view())
	}
	parts = append(parts, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) titleBar(name string, status model.Status) string {
	t := m.theme
	inits := m.session.Engine().Initiatives()
	pos := 0
	for i, in := range inits {
		if in.ID == m.session.InitiativeID() {
			pos = i + 1
			break
		}
	}
	st := t.Renderer.NewStyle().Foreground(t.StatusColor(status)).Bold(true)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		t.Header.Render("swimlane"),
		" ",
		t.Base.Bold(true).Render(truncate(name, m.width/2)),
		" ",
		st.Render(string(status)),
		t.Subtle.Render(fmt.Sprintf("  (%d/%d)", pos, len(inits))),
	)
}

func (m Model) infoLine(v timeline.View) string {
	focusLabel := "none"
	if v.FocusedEventID != "" {
		focusLabel = v.FocusedEventID
	}
	line := fmt.Sprintf("%s · zoom %.2f× · %s · focus: %s · %d events",
		m.view, v.Zoom, v.Mode, focusLabel, len(v.Items))
	if m.source != "" {
		line += " · " + m.source
	}
	return m.theme.Subtle.Render(truncate(line, m.width))
}

func (m Model) footer() string {
	t := m.theme
	help := t.Help.Render(truncate(m.keys.ShortHelp(), m.width))
	if m.statusMsg == "" {
		return help
	}
	st := t.Status
	if m.statusIsError {
		st = t.StatusErr
	}
	return lipgloss.JoinVertical(lipgloss.Left, st.Render(truncate(m.statusMsg, m.width)), help)
}

// Cursor returns the index of the event under the keyboard cursor.
func (m Model) Cursor() int { return m.cursor }

// ViewKind returns the active view.
func (m Model) ViewKind() ViewKind { return m.view }

// Run starts the TUI and blocks until it exits. SIGINT and SIGTERM quit
// the program, and a second signal or a stuck shutdown kills it.
func Run(opts Options) error {
	p := tea.NewProgram(NewModel(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}
		p.Quit()
		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}
		p.Kill()
	}()

	_, err := p.Run()
	close(runDone)
	if opts.Worker != nil {
		opts.Worker.Stop()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
