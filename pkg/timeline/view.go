package timeline

import (
	"time"

	"github.com/vanderheijden86/swimlane/pkg/connection"
	"github.com/vanderheijden86/swimlane/pkg/focus"
	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// ViewItem is one positioned event.
type ViewItem struct {
	Event model.Event `json:"event"`
	Time  time.Time   `json:"time"`
	X     float64     `json:"x"`
	Flags focus.Flags `json:"flags"`
}

// View is everything a renderer needs to draw one initiative.
type View struct {
	Initiative     model.Initiative  `json:"initiative"`
	Items          []ViewItem        `json:"items"`
	Edges          []connection.Edge `json:"edges"`
	FocusedEventID string            `json:"focusedEventId,omitempty"`
	Mode           VisualizationMode `json:"mode"`
	Zoom           float64           `json:"zoom"`
	Pan            float64           `json:"pan"`
	ContainerWidth float64           `json:"containerWidth"`
	Content        layout.Bounds     `json:"content"`
	DragBounds     layout.Bounds     `json:"dragBounds"`
	Weeks          []Bucket          `json:"weeks"`
	Now            time.Time         `json:"now"`
}

// Index returns the position of eventID in v.Items, or -1.
func (v View) Index(eventID string) int {
	for i, it := range v.Items {
		if it.Event.ID == eventID {
			return i
		}
	}
	return -1
}

// ViewRequest parameterises Engine.View.
type ViewRequest struct {
	Zoom           float64
	Pan            float64
	ContainerWidth float64
	FocusedEventID string
	Mode           VisualizationMode
	Now            time.Time
}

// View assembles a full render model for one initiative. Items are ordered
// against req.Now, matching the week buckets, even when the data was loaded
// on an earlier day.
func (e *Engine) View(initiativeID string, req ViewRequest) (View, error) {
	l, err := e.lane(initiativeID)
	if err != nil {
		return View{}, err
	}
	if req.Now.IsZero() {
		req.Now = e.opts.Now()
	}
	if req.Mode == "" {
		req.Mode = ModeDimOnly
	}
	zoom := e.layout.ClampZoom(req.Zoom)

	flags, err := e.FocusFlags(initiativeID, req.FocusedEventID)
	if err != nil {
		return View{}, err
	}
	edges, err := e.ConnectionEdges(initiativeID, req.Mode, req.FocusedEventID)
	if err != nil {
		return View{}, err
	}
	buckets, err := e.WeekBuckets(initiativeID, req.Now)
	if err != nil {
		return View{}, err
	}

	sorted := l.itemsAt(e.resolver, e.opts.ContextYear, req.Now)
	items := make([]ViewItem, len(sorted))
	for i, it := range sorted {
		items[i] = ViewItem{
			Event: it.Event,
			Time:  it.Time,
			X:     e.layout.X(i, zoom),
			Flags: flags[it.Event.ID],
		}
	}
	content, _ := e.layout.ContentBounds(len(sorted), zoom)

	return View{
		Initiative:     l.initiative,
		Items:          items,
		Edges:          edges,
		FocusedEventID: req.FocusedEventID,
		Mode:           req.Mode,
		Zoom:           zoom,
		Pan:            req.Pan,
		ContainerWidth: req.ContainerWidth,
		Content:        content,
		DragBounds:     e.layout.DragBounds(len(sorted), zoom, req.ContainerWidth),
		Weeks:          buckets,
		Now:            req.Now,
	}, nil
}
