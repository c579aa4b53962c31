// Package testutil provides deterministic initiative and event fixtures for
// timeline tests: link topologies, spread-out timestamps in every raw format
// the resolver understands, and multi-initiative data sets.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// LinkFixture is an abstract single-link topology: every node links to at
// most one other node, like Event.LinkedEventID.
type LinkFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Links       [][2]int   `json:"links"` // [from_idx, to_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles   bool `json:"has_cycles,omitempty"`
	IsConnected bool `json:"is_connected,omitempty"`
}

// TimestampStyle selects how raw timestamps are written.
type TimestampStyle int

const (
	// StyleISO writes "2006-01-02".
	StyleISO TimestampStyle = iota
	// StyleMonthDay writes "Jan 2", relying on the context year.
	StyleMonthDay
	// StyleRFC3339 writes a full timestamp with time of day.
	StyleRFC3339
	// StyleMixed picks one of the above per event.
	StyleMixed
)

// GeneratorConfig controls event generation.
type GeneratorConfig struct {
	Seed           int64               // Random seed for determinism (0 = use current time)
	IDPrefix       string              // Prefix for event IDs (default: "EV")
	InitiativeID   string              // Initiative the events belong to (default: "init-1")
	BaseTime       time.Time           // Time of the newest event (default: fixed time)
	Spacing        time.Duration       // Mean gap between consecutive events (default: 2 days)
	Style          TimestampStyle      // Raw timestamp format
	TypeMix        []model.EventType   // Type distribution (nil = all meeting)
	CriticalityMix []model.Criticality // Criticality distribution (nil = none)
	Shuffle        bool                // Emit events in random order instead of oldest first
}

// DefaultBaseTime is the fixed "now" the generators use by default.
var DefaultBaseTime = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:         42, // Deterministic
		IDPrefix:     "EV",
		InitiativeID: "init-1",
		BaseTime:     DefaultBaseTime,
		Spacing:      48 * time.Hour,
		TypeMix:      []model.EventType{model.EventMeeting},
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultBaseTime
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "EV"
	}
	if cfg.InitiativeID == "" {
		cfg.InitiativeID = "init-1"
	}
	if cfg.Spacing <= 0 {
		cfg.Spacing = 48 * time.Hour
	}
	if len(cfg.TypeMix) == 0 {
		cfg.TypeMix = []model.EventType{model.EventMeeting}
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Link Topology Generators
// ============================================================================

// Chain links every node to its predecessor: n1 -> n0, n2 -> n1, ...
func (g *Generator) Chain(size int) LinkFixture {
	nodes := make([]string, size)
	links := make([][2]int, 0, max(size-1, 0))
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			links = append(links, [2]int{i, i - 1})
		}
	}
	return LinkFixture{
		Description: fmt.Sprintf("Chain of %d nodes, each linking to the previous one", size),
		Nodes:       nodes,
		Links:       links,
		Properties:  Properties{IsConnected: true},
	}
}

// Star links every spoke to a hub. The hub ends up connected to every
// other node through reverse lookups.
func (g *Generator) Star(spokes int) LinkFixture {
	size := spokes + 1
	nodes := make([]string, size)
	links := make([][2]int, spokes)

	nodes[0] = "hub"
	for i := 1; i < size; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		links[i-1] = [2]int{i, 0}
	}
	return LinkFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes linking to it", spokes),
		Nodes:       nodes,
		Links:       links,
		Properties:  Properties{IsConnected: true},
	}
}

// Cycle closes a chain: n0 -> n1 -> ... -> n{size-1} -> n0.
func (g *Generator) Cycle(size int) LinkFixture {
	nodes := make([]string, size)
	links := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		links[i] = [2]int{i, (i + 1) % size}
	}
	return LinkFixture{
		Description: fmt.Sprintf("Cycle of %d nodes", size),
		Nodes:       nodes,
		Links:       links,
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// SelfLoop creates a single node linking to itself.
func (g *Generator) SelfLoop() LinkFixture {
	return LinkFixture{
		Description: "Single node linking to itself",
		Nodes:       []string{"self"},
		Links:       [][2]int{{0, 0}},
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// Disconnected creates isolated chains of componentSize nodes.
func (g *Generator) Disconnected(components, componentSize int) LinkFixture {
	var (
		nodes []string
		links [][2]int
	)
	for c := 0; c < components; c++ {
		base := len(nodes)
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				links = append(links, [2]int{base + i, base + i - 1})
			}
		}
	}
	return LinkFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Links:       links,
		Properties:  Properties{IsConnected: components <= 1},
	}
}

// RandomForest links each node to a random earlier node with probability
// density. The result never has cycles.
func (g *Generator) RandomForest(size int, density float64) LinkFixture {
	nodes := make([]string, size)
	var links [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 && g.rng.Float64() < density {
			links = append(links, [2]int{i, g.rng.Intn(i)})
		}
	}
	return LinkFixture{
		Description: fmt.Sprintf("Random forest of %d nodes with link density %.2f", size, density),
		Nodes:       nodes,
		Links:       links,
	}
}

// ============================================================================
// Event Generators
// ============================================================================

// ToEvents converts a fixture to events in the configured initiative. Node i
// gets a timestamp roughly i spacings after the oldest one, so the fixture
// order is also the timeline order. The last node lands on BaseTime.
func (g *Generator) ToEvents(lf LinkFixture) []model.Event {
	n := len(lf.Nodes)
	events := make([]model.Event, n)
	oldest := g.cfg.BaseTime.Add(-time.Duration(n-1) * g.cfg.Spacing)

	for i, node := range lf.Nodes {
		// Jitter stays under half a spacing so order is preserved.
		jitter := time.Duration(g.rng.Int63n(int64(g.cfg.Spacing)/2 + 1))
		at := oldest.Add(time.Duration(i)*g.cfg.Spacing - jitter)
		if i == 0 || i == n-1 {
			at = oldest.Add(time.Duration(i) * g.cfg.Spacing)
		}
		events[i] = model.Event{
			ID:           EventID(g.cfg.IDPrefix, i),
			InitiativeID: g.cfg.InitiativeID,
			Type:         g.pickType(),
			Title:        fmt.Sprintf("Event %s", node),
			Timestamp:    g.format(at),
			Criticality:  g.pickCriticality(),
		}
	}
	for _, l := range lf.Links {
		events[l[0]].LinkedEventID = events[l[1]].ID
	}

	if g.cfg.Shuffle {
		g.rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	}
	return events
}

// Initiatives returns n initiatives with ids "init-1".."init-n", cycling
// through the known statuses.
func (g *Generator) Initiatives(n int) []model.Initiative {
	statuses := []model.Status{model.StatusOnTrack, model.StatusDelayed, model.StatusBlocked, model.StatusFinished}
	out := make([]model.Initiative, n)
	for i := range out {
		out[i] = model.Initiative{
			ID:     fmt.Sprintf("init-%d", i+1),
			Name:   fmt.Sprintf("Initiative %d", i+1),
			Owner:  fmt.Sprintf("owner%d", i%3+1),
			Status: statuses[i%len(statuses)],
		}
	}
	return out
}

// Dataset returns initiatives with eventsPer events each. Events inside an
// initiative form a random forest; ids are unique across the data set.
func (g *Generator) Dataset(initiatives, eventsPer int, density float64) ([]model.Initiative, []model.Event) {
	inits := g.Initiatives(initiatives)
	var events []model.Event
	saved := g.cfg
	for i, in := range inits {
		g.cfg.InitiativeID = in.ID
		g.cfg.IDPrefix = fmt.Sprintf("%s-%d", saved.IDPrefix, i+1)
		events = append(events, g.ToEvents(g.RandomForest(eventsPer, density))...)
	}
	g.cfg = saved
	return inits, events
}

// ToJSONL renders items one JSON object per line.
func ToJSONL[T any](items []T) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range items {
		if err := enc.Encode(items[i]); err != nil {
			panic(fmt.Sprintf("testutil: encoding item %d: %v", i, err))
		}
	}
	return buf.String()
}

// Helper methods

func (g *Generator) pickType() model.EventType {
	return g.cfg.TypeMix[g.rng.Intn(len(g.cfg.TypeMix))]
}

func (g *Generator) pickCriticality() model.Criticality {
	if len(g.cfg.CriticalityMix) == 0 {
		return ""
	}
	return g.cfg.CriticalityMix[g.rng.Intn(len(g.cfg.CriticalityMix))]
}

func (g *Generator) format(t time.Time) string {
	style := g.cfg.Style
	if style == StyleMixed {
		style = TimestampStyle(g.rng.Intn(int(StyleMixed)))
	}
	switch style {
	case StyleMonthDay:
		return t.Format("Jan 2")
	case StyleRFC3339:
		return t.Format(time.RFC3339)
	default:
		return t.Format("2006-01-02")
	}
}

// EventID returns the id of the index-th generated event.
func EventID(prefix string, index int) string {
	return fmt.Sprintf("%s-%d", prefix, index)
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain of events with default settings.
func QuickChain(size int) []model.Event {
	g := NewDefault()
	return g.ToEvents(g.Chain(size))
}

// QuickStar creates a star of events with default settings.
func QuickStar(spokes int) []model.Event {
	g := NewDefault()
	return g.ToEvents(g.Star(spokes))
}

// QuickCycle creates a cycle of events with default settings.
func QuickCycle(size int) []model.Event {
	g := NewDefault()
	return g.ToEvents(g.Cycle(size))
}

// QuickDataset creates a multi-initiative data set with default settings.
func QuickDataset(initiatives, eventsPer int) ([]model.Initiative, []model.Event) {
	return NewDefault().Dataset(initiatives, eventsPer, 0.3)
}

// Empty returns an empty event slice for edge case testing.
func Empty() []model.Event {
	return []model.Event{}
}

// Single returns a single event with no link.
func Single() []model.Event {
	return []model.Event{{
		ID:           "single-1",
		InitiativeID: "init-1",
		Type:         model.EventMilestone,
		Title:        "Single event",
		Timestamp:    DefaultBaseTime.Format("2006-01-02"),
	}}
}
