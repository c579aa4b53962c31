// Package timeline assembles the resolver, bucketer, connection graph, focus
// rules and layout into the outputs a renderer consumes, and provides the
// Session that owns interactive state on top of them.
package timeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/connection"
	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/focus"
	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timestamp"
	"github.com/vanderheijden86/swimlane/pkg/weeks"
)

// ErrUnknownInitiative is returned for an initiative id the engine has not loaded.
var ErrUnknownInitiative = errors.New("unknown initiative")

// VisualizationMode controls which connection edges are emitted.
type VisualizationMode string

const (
	// ModeDimOnly emits only the edges touching the focused event.
	ModeDimOnly VisualizationMode = "dim-only"
	// ModeDimWithLines emits every edge within the initiative.
	ModeDimWithLines VisualizationMode = "dim-with-lines"
)

// ParseMode parses a visualization mode name. Empty selects ModeDimOnly.
func ParseMode(s string) (VisualizationMode, error) {
	switch VisualizationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDimOnly:
		return ModeDimOnly, nil
	case ModeDimWithLines:
		return ModeDimWithLines, nil
	default:
		return "", fmt.Errorf("invalid visualization mode %q (want %s or %s)", s, ModeDimOnly, ModeDimWithLines)
	}
}

// Options configure an Engine.
type Options struct {
	Layout layout.Config
	// ContextYear completes partial dates; 0 uses the year of now.
	ContextYear int
	// Hook observes silently handled inputs. Optional.
	Hook diag.Hook
	// Now is the clock used when loading; defaults to time.Now.
	Now func() time.Time
}

// Bucket is one week column with its events.
type Bucket struct {
	Week   weeks.Week    `json:"week"`
	Events []model.Event `json:"events"`
}

// lane is the loaded state of one initiative.
type lane struct {
	initiative model.Initiative
	raw        []model.Event // provider order
	items      []layout.Item // sorted by resolved time
	resolvedAt time.Time     // clock reading the items were resolved against
}

// itemsAt returns the lane's sorted items as seen on now's calendar day.
// Relative timestamps are re-resolved once the day differs from the load.
func (l *lane) itemsAt(r timestamp.Resolver, contextYear int, now time.Time) []layout.Item {
	if sameDay(now, l.resolvedAt) {
		return l.items
	}
	return layout.Sort(r, l.raw, contextYear, now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Engine answers the stateless timeline queries for a loaded data set.
// Queries may run concurrently with each other and with Load.
type Engine struct {
	opts     Options
	resolver timestamp.Resolver
	layout   *layout.Engine

	mu          sync.RWMutex
	initiatives []model.Initiative
	lanes       map[string]*lane
	graph       *connection.Graph
	loadedAt    time.Time
}

// NewEngine returns an empty engine.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		opts:     opts,
		resolver: timestamp.NewResolver(opts.Hook),
		layout:   layout.New(opts.Layout),
		lanes:    make(map[string]*lane),
		graph:    connection.New(nil),
	}
}

// Layout returns the layout engine.
func (e *Engine) Layout() *layout.Engine { return e.layout }

// ContextYear returns the configured context year.
func (e *Engine) ContextYear() int { return e.opts.ContextYear }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.opts.Now() }

// Load replaces the engine's data with a fresh read of p.
func (e *Engine) Load(p Provider) error {
	defer metrics.Timer(metrics.DataLoad)()

	inits, err := p.ListInitiatives()
	if err != nil {
		return fmt.Errorf("listing initiatives: %w", err)
	}
	byID := make(map[string][]model.Event, len(inits))
	for _, id := range initiativeIDs(inits) {
		evs, err := p.ListEvents(id)
		if err != nil {
			return fmt.Errorf("listing events for %s: %w", id, err)
		}
		byID[id] = evs
	}
	e.SetData(inits, byID)
	return nil
}

// SetData installs initiatives and their events directly. Events with an
// empty InitiativeID are attributed to the initiative they are listed under;
// events listed under another initiative are ignored.
func (e *Engine) SetData(inits []model.Initiative, events map[string][]model.Event) {
	now := e.opts.Now()
	lanes := make(map[string]*lane, len(inits))
	var uniq []model.Initiative
	var all []model.Event

	for _, in := range inits {
		if _, dup := lanes[in.ID]; dup {
			debug.Log("timeline: duplicate initiative %s ignored", in.ID)
			continue
		}
		uniq = append(uniq, in)

		var raw []model.Event
		for _, ev := range events[in.ID] {
			if ev.InitiativeID == "" {
				ev.InitiativeID = in.ID
			}
			if ev.InitiativeID != in.ID {
				debug.Log("timeline: event %s listed under %s belongs to %s", ev.ID, in.ID, ev.InitiativeID)
				continue
			}
			raw = append(raw, ev)
		}
		all = append(all, raw...)
		lanes[in.ID] = &lane{
			initiative: in,
			raw:        raw,
			items:      layout.Sort(e.resolver, raw, e.opts.ContextYear, now),
			resolvedAt: now,
		}
	}
	graph := connection.NewWithHook(all, e.opts.Hook)

	e.mu.Lock()
	e.initiatives = uniq
	e.lanes = lanes
	e.graph = graph
	e.loadedAt = now
	e.mu.Unlock()

	debug.Log("timeline: loaded %d initiatives, %d events", len(uniq), len(all))
}

// LoadedAt returns the clock reading used for the last load.
func (e *Engine) LoadedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loadedAt
}

// Initiatives returns the loaded initiatives in provider order.
func (e *Engine) Initiatives() []model.Initiative {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Initiative(nil), e.initiatives...)
}

// Initiative returns the initiative with id.
func (e *Engine) Initiative(id string) (model.Initiative, error) {
	l, err := e.lane(id)
	if err != nil {
		return model.Initiative{}, err
	}
	return l.initiative, nil
}

// HasInitiative reports whether id is loaded.
func (e *Engine) HasInitiative(id string) bool {
	_, err := e.lane(id)
	return err == nil
}

func (e *Engine) lane(id string) (*lane, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.lanes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInitiative, id)
	}
	return l, nil
}

// Items returns the initiative's events with resolved times, sorted.
func (e *Engine) Items(initiativeID string) ([]layout.Item, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return nil, err
	}
	return append([]layout.Item(nil), l.items...), nil
}

// Events returns the initiative's events sorted by resolved time.
func (e *Engine) Events(initiativeID string) ([]model.Event, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return nil, err
	}
	return layout.Events(l.items), nil
}

// Event looks up one event of an initiative.
func (e *Engine) Event(initiativeID, eventID string) (model.Event, bool) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return model.Event{}, false
	}
	for _, it := range l.items {
		if it.Event.ID == eventID {
			return it.Event, true
		}
	}
	return model.Event{}, false
}

// WeekBuckets groups the initiative's events into the eight-week window
// around now. Every week is present, oldest first, possibly empty.
func (e *Engine) WeekBuckets(initiativeID string, now time.Time) ([]Bucket, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return nil, err
	}
	ws := weeks.BuildWeeks(now)
	grouped := weeks.GroupByWeekWith(e.resolver, l.raw, ws, now, e.opts.ContextYear)
	out := make([]Bucket, len(ws))
	for i, w := range ws {
		out[i] = Bucket{Week: w, Events: grouped[w.Offset]}
	}
	return out, nil
}

// ContinuousPositions maps each event id to its x at zoom.
func (e *Engine) ContinuousPositions(initiativeID string, zoom float64) (map[string]float64, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return nil, err
	}
	return e.layout.Positions(layout.Events(l.items), zoom), nil
}

// DragBounds returns the pan range for the initiative's content.
func (e *Engine) DragBounds(initiativeID string, containerWidth, zoom float64) (layout.Bounds, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return layout.Bounds{}, err
	}
	return e.layout.DragBounds(len(l.items), zoom, containerWidth), nil
}

// FocusFlags returns the per-event focus flags. An empty focusedEventID
// means Idle.
func (e *Engine) FocusFlags(initiativeID, focusedEventID string) (map[string]focus.Flags, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return nil, err
	}
	return focus.FlagsFor(stateFor(focusedEventID), layout.Events(l.items), e.currentGraph(), initiativeID), nil
}

// ConnectionEdges returns the edges to draw for mode. In ModeDimOnly only the
// edges touching focusedEventID are returned, none while Idle.
func (e *Engine) ConnectionEdges(initiativeID string, mode VisualizationMode, focusedEventID string) ([]connection.Edge, error) {
	if _, err := e.lane(initiativeID); err != nil {
		return nil, err
	}
	g := e.currentGraph()
	if mode == ModeDimWithLines {
		return g.Edges(initiativeID), nil
	}
	if focusedEventID == "" {
		return nil, nil
	}
	return g.EdgesTouching(focusedEventID, initiativeID), nil
}

// ConnectedIDs returns the events directly linked to eventID.
func (e *Engine) ConnectedIDs(initiativeID, eventID string) (map[string]bool, error) {
	if _, err := e.lane(initiativeID); err != nil {
		return nil, err
	}
	return e.currentGraph().ConnectedIDs(eventID, initiativeID), nil
}

func (e *Engine) currentGraph() *connection.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

func stateFor(focusedEventID string) focus.State {
	if focusedEventID == "" {
		return focus.Idle()
	}
	return focus.Focused(focusedEventID)
}
