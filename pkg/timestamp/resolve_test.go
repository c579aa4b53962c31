package timestamp

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/model"
)

// Monday 2026-02-02 09:30 UTC.
var testNow = time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)

func TestResolveRelativeTokens(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
		rule Rule
	}{
		{"Today", testNow, RuleToday},
		{"  today ", testNow, RuleToday},
		{"Yesterday", testNow.AddDate(0, 0, -1), RuleYesterday},
		{"3 days ago", testNow.AddDate(0, 0, -3), RuleDaysAgo},
		{"1 day ago", testNow.AddDate(0, 0, -1), RuleDaysAgo},
		{"0 days ago", testNow, RuleDaysAgo},
		{"In 15 mins", testNow.Add(15 * time.Minute), RuleInMinutes},
		{"in 1 min", testNow.Add(time.Minute), RuleInMinutes},
	}
	for _, tt := range tests {
		got := ResolveDetailed(tt.raw, 2026, testNow)
		if !got.Time.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.raw, got.Time, tt.want)
		}
		if got.Rule != tt.rule {
			t.Errorf("Resolve(%q) rule = %v, want %v", tt.raw, got.Rule, tt.rule)
		}
	}
}

func TestResolveFullDates(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-01-15", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2026-01-15 14:20", time.Date(2026, 1, 15, 14, 20, 0, 0, time.UTC)},
		{"2025-12-31T23:00:00Z", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)},
		{"January 5, 2025", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"Mar 9, 2024", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"3/9/2024", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ResolveDetailed(tt.raw, 2026, testNow)
		if got.Rule != RuleFullDate {
			t.Errorf("Resolve(%q) rule = %v, want full_date", tt.raw, got.Rule)
		}
		if !got.Time.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.raw, got.Time, tt.want)
		}
	}
}

func TestResolvePartialDateUsesContextYear(t *testing.T) {
	got := ResolveDetailed("Jan 30", 2026, testNow)
	want := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	if got.Rule != RulePartialDate || !got.Time.Equal(want) {
		t.Errorf("expected %v via partial_date, got %v via %v", want, got.Time, got.Rule)
	}

	got = ResolveDetailed("Jan 30", 2019, testNow)
	if got.Time.Year() != 2019 {
		t.Errorf("expected context year 2019, got %d", got.Time.Year())
	}
}

func TestResolvePartialDateTrailingYearWins(t *testing.T) {
	got := ResolveDetailed("Sept 4 2023", 2026, testNow)
	want := time.Date(2023, 9, 4, 0, 0, 0, 0, time.UTC)
	if got.Rule != RulePartialDate || !got.Time.Equal(want) {
		t.Errorf("expected %v via partial_date, got %v via %v", want, got.Time, got.Rule)
	}

	got = ResolveDetailed("February 14", 0, testNow)
	if got.Time.Year() != testNow.Year() {
		t.Errorf("contextYear 0 should default to now's year, got %d", got.Time.Year())
	}
}

func TestResolveFallsBackToNow(t *testing.T) {
	for _, raw := range []string{"", "soon", "Feb 31", "Q3", "In a few mins", "Smarch 4"} {
		got := ResolveDetailed(raw, 2026, testNow)
		if !got.Fallback() || !got.Time.Equal(testNow) {
			t.Errorf("Resolve(%q) = %v via %v, want now via fallback", raw, got.Time, got.Rule)
		}
	}
}

func TestResolverReportsFallback(t *testing.T) {
	var c diag.Collector
	r := NewResolver(c.Hook())

	ev := model.Event{ID: "e1", InitiativeID: "sl1", Timestamp: "sometime"}
	if got := r.ResolveEvent(ev, 2026, testNow); !got.Equal(testNow) {
		t.Errorf("expected now, got %v", got)
	}
	r.ResolveEvent(model.Event{ID: "e2", Timestamp: "Today"}, 2026, testNow)

	all := c.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(all))
	}
	if all[0].Kind != diag.UnparseableTimestamp || all[0].EventID != "e1" || all[0].Raw != "sometime" {
		t.Errorf("unexpected diagnostic %+v", all[0])
	}
}

func TestResolveIsPure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SampledFrom([]string{
			"Today", "Yesterday", "4 days ago", "In 30 mins", "Jan 30", "2026-01-01", "nonsense",
		}).Draw(t, "raw")
		year := rapid.IntRange(1990, 2100).Draw(t, "year")
		sec := rapid.Int64Range(0, 4_000_000_000).Draw(t, "sec")
		now := time.Unix(sec, 0).UTC()

		a := Resolve(raw, year, now)
		b := Resolve(raw, year, now)
		if !a.Equal(b) {
			t.Fatalf("Resolve(%q) not deterministic: %v vs %v", raw, a, b)
		}
	})
}

func TestRelativeTokensTrackNow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5000).Draw(t, "n")
		sec := rapid.Int64Range(0, 4_000_000_000).Draw(t, "sec")
		now := time.Unix(sec, 0).UTC()

		if got := Resolve(fmt.Sprintf("%d days ago", n), 2026, now); !got.Equal(now.AddDate(0, 0, -n)) {
			t.Fatalf("%d days ago: got %v", n, got)
		}
		if got := Resolve(fmt.Sprintf("In %d mins", n), 2026, now); got.Sub(now) != time.Duration(n)*time.Minute {
			t.Fatalf("In %d mins: got offset %v", n, got.Sub(now))
		}
	})
}
