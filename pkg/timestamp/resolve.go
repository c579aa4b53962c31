// Package timestamp turns the raw, partially-structured timestamps found on
// timeline events into absolute instants.
//
// Resolution never fails. Rules are tried in a fixed order:
//
//  1. "Today"                 -> now
//  2. "Yesterday"             -> now - 1 day
//  3. "<N> days ago"          -> now - N days
//  4. "In <N> mins"           -> now + N minutes
//  5. a fully specified date  -> parsed in now's location
//  6. "<Month> <Day>[ <Year>]" -> "<Month> <Day>, <Year or contextYear>"
//  7. anything else           -> now
//
// Rule 7 is a silent degradation; a Resolver with a diag.Hook reports it.
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// Rule identifies which resolution rule produced an instant.
type Rule int

const (
	RuleToday Rule = iota + 1
	RuleYesterday
	RuleDaysAgo
	RuleInMinutes
	RuleFullDate
	RulePartialDate
	RuleFallback
)

func (r Rule) String() string {
	switch r {
	case RuleToday:
		return "today"
	case RuleYesterday:
		return "yesterday"
	case RuleDaysAgo:
		return "days_ago"
	case RuleInMinutes:
		return "in_minutes"
	case RuleFullDate:
		return "full_date"
	case RulePartialDate:
		return "partial_date"
	case RuleFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is a resolved instant together with the rule that produced it.
type Result struct {
	Time time.Time
	Rule Rule
}

// Fallback reports whether the raw value matched no rule.
func (r Result) Fallback() bool {
	return r.Rule == RuleFallback
}

var (
	daysAgoRe   = regexp.MustCompile(`(?i)^(\d+)\s+days?\s+ago$`)
	inMinutesRe = regexp.MustCompile(`(?i)^in\s+(\d+)\s+mins?$`)
	partialRe   = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:(?:,\s*|\s+)(\d{4}))?$`)
)

// fullDateLayouts are tried in order for rule 5. Slash dates are read
// month-first.
var fullDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006 15:04",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006, 3:04 PM",
	"2 January 2006",
	"2 Jan 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	"1/2/2006",
	"1/2/2006 15:04",
}

// partialLayouts parse the "<Month> <Day>, <Year>" string assembled by rule 6.
var partialLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
}

// Resolve converts raw into an absolute instant relative to now. A
// contextYear <= 0 means now's year. Resolve is pure.
func Resolve(raw string, contextYear int, now time.Time) time.Time {
	return ResolveDetailed(raw, contextYear, now).Time
}

// ResolveDetailed is Resolve plus the rule that matched.
func ResolveDetailed(raw string, contextYear int, now time.Time) Result {
	s := strings.TrimSpace(raw)

	switch strings.ToLower(s) {
	case "today":
		return Result{Time: now, Rule: RuleToday}
	case "yesterday":
		return Result{Time: now.AddDate(0, 0, -1), Rule: RuleYesterday}
	}

	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Result{Time: now.AddDate(0, 0, -n), Rule: RuleDaysAgo}
		}
	}

	if m := inMinutesRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return Result{Time: now.Add(time.Duration(n) * time.Minute), Rule: RuleInMinutes}
		}
	}

	if s != "" {
		if t, ok := parseFirst(fullDateLayouts, s, now.Location()); ok {
			return Result{Time: t, Rule: RuleFullDate}
		}
	}

	if m := partialRe.FindStringSubmatch(s); m != nil {
		year := contextYear
		if year <= 0 {
			year = now.Year()
		}
		if m[3] != "" {
			if y, err := strconv.Atoi(m[3]); err == nil {
				year = y
			}
		}
		assembled := fmt.Sprintf("%s %s, %d", normalizeMonth(m[1]), m[2], year)
		if t, ok := parseFirst(partialLayouts, assembled, now.Location()); ok {
			return Result{Time: t, Rule: RulePartialDate}
		}
	}

	return Result{Time: now, Rule: RuleFallback}
}

func parseFirst(layouts []string, s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeMonth maps the four-letter "Sept" to the abbreviation time.Parse knows.
func normalizeMonth(m string) string {
	if strings.EqualFold(m, "sept") {
		return "Sep"
	}
	return m
}

// Resolver resolves event timestamps and reports fallbacks to a hook.
type Resolver struct {
	Hook diag.Hook
}

// NewResolver returns a Resolver reporting to hook (which may be nil).
func NewResolver(hook diag.Hook) Resolver {
	return Resolver{Hook: hook}
}

// Resolve resolves one raw value; see the package-level Resolve.
func (r Resolver) Resolve(raw string, contextYear int, now time.Time) time.Time {
	res := ResolveDetailed(raw, contextYear, now)
	if res.Fallback() {
		r.report(model.Event{Timestamp: raw})
	}
	return res.Time
}

// ResolveEvent resolves e.Timestamp and reports a fallback with the event's ids.
func (r Resolver) ResolveEvent(e model.Event, contextYear int, now time.Time) time.Time {
	defer metrics.Timer(metrics.TimestampResolve)()
	res := ResolveDetailed(e.Timestamp, contextYear, now)
	if res.Fallback() {
		r.report(e)
	}
	return res.Time
}

func (r Resolver) report(e model.Event) {
	debug.Log("timestamp %q on event %q matched no rule, using now", e.Timestamp, e.ID)
	r.Hook.Emit(diag.Diagnostic{
		Kind:         diag.UnparseableTimestamp,
		InitiativeID: e.InitiativeID,
		EventID:      e.ID,
		Raw:          e.Timestamp,
		Detail:       "resolved to now",
	})
}
