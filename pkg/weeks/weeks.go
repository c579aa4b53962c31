// Package weeks partitions a fixed window of Sunday-aligned weeks around "now"
// and assigns timeline events to week offsets.
package weeks

import (
	"fmt"
	"math"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timestamp"
)

// Window bounds, inclusive. The bucketed view always shows 8 weeks.
const (
	MinOffset  = -4
	MaxOffset  = 3
	WindowSize = MaxOffset - MinOffset + 1
)

const week = 7 * 24 * time.Hour

// Week is one column of the bucketed view.
type Week struct {
	Offset        int       `json:"offset"`
	Label         string    `json:"label"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsCurrentWeek bool      `json:"is_current_week"`
	IsFuture      bool      `json:"is_future"`
}

// Label returns the display label for a week offset.
func Label(offset int) string {
	switch {
	case offset == 0:
		return "THIS WEEK"
	case offset == -1:
		return "LAST WEEK"
	case offset == 1:
		return "NEXT WEEK"
	case offset < -1:
		return fmt.Sprintf("%d WEEKS AGO", -offset)
	default:
		return fmt.Sprintf("IN %d WEEKS", offset)
	}
}

// StartOf returns midnight of the Sunday starting t's week, in t's location.
func StartOf(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(t.Weekday()))
}

// BuildWeeks returns the WindowSize weeks from MinOffset to MaxOffset around
// the week containing now, oldest first.
func BuildWeeks(now time.Time) []Week {
	base := StartOf(now)
	out := make([]Week, 0, WindowSize)
	for offset := MinOffset; offset <= MaxOffset; offset++ {
		start := base.AddDate(0, 0, 7*offset)
		out = append(out, Week{
			Offset:        offset,
			Label:         Label(offset),
			StartDate:     start,
			EndDate:       start.AddDate(0, 0, 6),
			IsCurrentWeek: offset == 0,
			IsFuture:      offset > 0,
		})
	}
	return out
}

// OffsetBetween returns the signed number of whole weeks between the weeks
// containing t and now. Rounding absorbs DST shifts.
func OffsetBetween(t, now time.Time) int {
	diff := StartOf(t).Sub(StartOf(now))
	return int(math.Round(float64(diff) / float64(week)))
}

// InWindow reports whether offset falls inside the bucketed view.
func InWindow(offset int) bool {
	return offset >= MinOffset && offset <= MaxOffset
}

// Assign returns the week offset of e relative to now, resolving its raw
// timestamp with contextYear. The offset may lie outside the window.
func Assign(e model.Event, now time.Time, contextYear int) int {
	return AssignWith(timestamp.Resolver{}, e, now, contextYear)
}

// AssignWith is Assign using r, so fallbacks reach r's diagnostic hook.
func AssignWith(r timestamp.Resolver, e model.Event, now time.Time, contextYear int) int {
	return OffsetBetween(r.ResolveEvent(e, contextYear, now), now)
}

// GroupByWeek buckets events by week offset. Every week in weeks is present
// as a key, possibly with an empty slice. Events outside the window are left
// out; the order of events inside a bucket follows the input order.
func GroupByWeek(events []model.Event, weeks []Week, now time.Time, contextYear int) map[int][]model.Event {
	return GroupByWeekWith(timestamp.Resolver{}, events, weeks, now, contextYear)
}

// GroupByWeekWith is GroupByWeek using r for timestamp resolution.
func GroupByWeekWith(r timestamp.Resolver, events []model.Event, weeks []Week, now time.Time, contextYear int) map[int][]model.Event {
	defer metrics.Timer(metrics.WeekBucketing)()

	groups := make(map[int][]model.Event, len(weeks))
	for _, w := range weeks {
		groups[w.Offset] = []model.Event{}
	}
	for _, e := range events {
		offset := AssignWith(r, e, now, contextYear)
		if _, ok := groups[offset]; !ok {
			continue
		}
		groups[offset] = append(groups[offset], e)
	}
	return groups
}
