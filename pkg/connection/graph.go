// Package connection resolves the sparse single-link connection graph between
// timeline events.
//
// Each event carries at most one outbound linkedEventId. Focus queries treat
// that link bidirectionally but never transitively: an event linked to a link
// of the focused event is not connected to it. Connections are always scoped
// to one initiative.
package connection

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// Edge is a directed link from an event to the event it references.
type Edge struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
}

// Graph indexes the links between a set of events.
type Graph struct {
	g          *simple.DirectedGraph
	idToNode   map[string]int64
	nodeToID   map[int64]string
	initiative map[string]string // event id -> initiative id
	selfLinked map[string]bool   // kept off the gonum graph, which rejects loops
	dangling   []diag.Diagnostic
}

// New builds the graph for events. Links to unknown events are dropped and the
// first event wins when ids collide. A self link connects an event to itself
// but yields no edge.
func New(events []model.Event) *Graph {
	return NewWithHook(events, nil)
}

// NewWithHook is New, reporting dropped links and duplicate ids to hook.
func NewWithHook(events []model.Event, hook diag.Hook) *Graph {
	defer metrics.Timer(metrics.GraphBuild)()

	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(events))
	nodeToID := make(map[int64]string, len(events))
	initiative := make(map[string]string, len(events))

	for _, e := range events {
		if _, dup := idToNode[e.ID]; dup {
			hook.Emit(diag.Diagnostic{
				Kind:         diag.DuplicateEventID,
				InitiativeID: e.InitiativeID,
				EventID:      e.ID,
				Detail:       "first occurrence kept",
			})
			continue
		}
		n := g.NewNode()
		g.AddNode(n)
		idToNode[e.ID] = n.ID()
		nodeToID[n.ID()] = e.ID
		initiative[e.ID] = e.InitiativeID
	}

	gr := &Graph{
		g:          g,
		idToNode:   idToNode,
		nodeToID:   nodeToID,
		initiative: initiative,
		selfLinked: make(map[string]bool),
	}

	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		if !e.HasLink() {
			continue
		}
		if e.LinkedEventID == e.ID {
			gr.selfLinked[e.ID] = true
			continue
		}

		v, ok := idToNode[e.LinkedEventID]
		if !ok {
			d := diag.Diagnostic{
				Kind:         diag.DanglingLink,
				InitiativeID: e.InitiativeID,
				EventID:      e.ID,
				Raw:          e.LinkedEventID,
				Detail:       "target event not found",
			}
			gr.dangling = append(gr.dangling, d)
			hook.Emit(d)
			debug.Log("event %s links to unknown event %s", e.ID, e.LinkedEventID)
			continue
		}
		if initiative[e.LinkedEventID] != e.InitiativeID {
			d := diag.Diagnostic{
				Kind:         diag.CrossInitiativeLink,
				InitiativeID: e.InitiativeID,
				EventID:      e.ID,
				Raw:          e.LinkedEventID,
				Detail:       "target belongs to initiative " + initiative[e.LinkedEventID],
			}
			gr.dangling = append(gr.dangling, d)
			hook.Emit(d)
		}

		// Cross-initiative edges are kept in the graph and filtered per query.
		u := idToNode[e.ID]
		g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
	}

	return gr
}

// Len returns the number of distinct events in the graph.
func (gr *Graph) Len() int {
	return len(gr.idToNode)
}

// LinkedID returns the in-graph target of id's outbound link.
func (gr *Graph) LinkedID(id string) (string, bool) {
	u, ok := gr.idToNode[id]
	if !ok {
		return "", false
	}
	if gr.selfLinked[id] {
		return id, true
	}
	to := gr.g.From(u)
	for to.Next() {
		return gr.nodeToID[to.Node().ID()], true
	}
	return "", false
}

// ConnectedIDs returns the events directly linked to or from focusID that
// belong to initiativeID. A self-linked focus is connected to itself. Unknown
// focus ids yield an empty set.
func (gr *Graph) ConnectedIDs(focusID, initiativeID string) map[string]bool {
	out := make(map[string]bool)
	u, ok := gr.idToNode[focusID]
	if !ok {
		return out
	}
	if gr.selfLinked[focusID] && gr.initiative[focusID] == initiativeID {
		out[focusID] = true
	}

	direct := gr.g.From(u)
	for direct.Next() {
		gr.addIfInInitiative(out, direct.Node().ID(), initiativeID)
	}
	reverse := gr.g.To(u)
	for reverse.Next() {
		gr.addIfInInitiative(out, reverse.Node().ID(), initiativeID)
	}
	return out
}

func (gr *Graph) addIfInInitiative(set map[string]bool, node int64, initiativeID string) {
	id := gr.nodeToID[node]
	if gr.initiative[id] == initiativeID {
		set[id] = true
	}
}

// IsConnected reports whether a and b are directly linked in either direction
// within initiativeID.
func (gr *Graph) IsConnected(a, b, initiativeID string) bool {
	return gr.ConnectedIDs(a, initiativeID)[b]
}

// Edges returns every link whose endpoints both belong to initiativeID,
// sorted by FromID then ToID.
func (gr *Graph) Edges(initiativeID string) []Edge {
	var out []Edge
	it := gr.g.Edges()
	for it.Next() {
		e := it.Edge()
		from := gr.nodeToID[e.From().ID()]
		to := gr.nodeToID[e.To().ID()]
		if gr.initiative[from] != initiativeID || gr.initiative[to] != initiativeID {
			continue
		}
		out = append(out, Edge{FromID: from, ToID: to})
	}
	sortEdges(out)
	return out
}

// EdgesTouching returns the in-initiative links with id at either end.
func (gr *Graph) EdgesTouching(id, initiativeID string) []Edge {
	u, ok := gr.idToNode[id]
	if !ok || gr.initiative[id] != initiativeID {
		return nil
	}
	var out []Edge
	direct := gr.g.From(u)
	for direct.Next() {
		to := gr.nodeToID[direct.Node().ID()]
		if gr.initiative[to] == initiativeID {
			out = append(out, Edge{FromID: id, ToID: to})
		}
	}
	reverse := gr.g.To(u)
	for reverse.Next() {
		from := gr.nodeToID[reverse.Node().ID()]
		if gr.initiative[from] == initiativeID {
			out = append(out, Edge{FromID: from, ToID: id})
		}
	}
	sortEdges(out)
	return out
}

// Dropped returns the links that will never be surfaced: dangling targets and
// cross-initiative references.
func (gr *Graph) Dropped() []diag.Diagnostic {
	return gr.dangling
}

func sortEdges(es []Edge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].FromID != es[j].FromID {
			return es[i].FromID < es[j].FromID
		}
		return es[i].ToID < es[j].ToID
	})
}

// ConnectedIDs builds a graph over events and answers a single query.
// Prefer New + Graph.ConnectedIDs when issuing several queries.
func ConnectedIDs(focusID string, events []model.Event, initiativeID string) map[string]bool {
	return New(events).ConnectedIDs(focusID, initiativeID)
}

// SortedIDs returns the keys of set in ascending order.
func SortedIDs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
