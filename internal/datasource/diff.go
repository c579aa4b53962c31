package datasource

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vanderheijden86/swimlane/pkg/model"
)

// SourceDiff represents differences between two data sources
type SourceDiff struct {
	// SourceA is the name of the first source
	SourceA string
	// SourceB is the name of the second source
	SourceB string
	// MissingInA contains ids present in B but not in A ("initiative:<id>" or "event:<id>")
	MissingInA []string
	// MissingInB contains ids present in A but not in B
	MissingInB []string
	// Changed contains ids present in both sources with different content
	Changed []string
	// CountA is the number of events in source A
	CountA int
	// CountB is the number of events in source B
	CountB int
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Changed) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d events each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	list := func(label string, ids []string) {
		if len(ids) == 0 {
			return
		}
		summary += fmt.Sprintf("  - %d %s\n", len(ids), label)
		if len(ids) <= 5 {
			for _, id := range ids {
				summary += fmt.Sprintf("    - %s\n", id)
			}
		}
	}
	list(fmt.Sprintf("records in %s but not %s", d.SourceB, d.SourceA), d.MissingInA)
	list(fmt.Sprintf("records in %s but not %s", d.SourceA, d.SourceB), d.MissingInB)
	list("records with different content", d.Changed)
	return summary
}

// DetectInconsistencies compares two data sets record by record.
func DetectInconsistencies(initsA, initsB []model.Initiative, eventsA, eventsB []model.Event, sourceA, sourceB string) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
		CountA:  len(eventsA),
		CountB:  len(eventsB),
	}

	a := make(map[string]any)
	b := make(map[string]any)
	for _, in := range initsA {
		a["initiative:"+in.ID] = in
	}
	for _, in := range initsB {
		b["initiative:"+in.ID] = in
	}
	for _, e := range eventsA {
		a["event:"+e.ID] = normalizeEvent(e)
	}
	for _, e := range eventsB {
		b["event:"+e.ID] = normalizeEvent(e)
	}

	for id, va := range a {
		vb, ok := b[id]
		if !ok {
			diff.MissingInB = append(diff.MissingInB, id)
			continue
		}
		if !reflect.DeepEqual(va, vb) {
			diff.Changed = append(diff.Changed, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			diff.MissingInA = append(diff.MissingInA, id)
		}
	}
	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)
	sort.Strings(diff.Changed)
	return diff
}

// normalizeEvent maps an empty evidence slice to nil so storage round trips compare equal.
func normalizeEvent(e model.Event) model.Event {
	if len(e.Evidence) == 0 {
		e.Evidence = nil
	}
	return e
}

// CompareSources loads two sources and diffs them.
func CompareSources(sourceA, sourceB DataSource) (*SourceDiff, error) {
	initsA, eventsA, err := readSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sourceA.Path, err)
	}
	initsB, eventsB, err := readSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sourceB.Path, err)
	}
	d := DetectInconsistencies(initsA, initsB, eventsA, eventsB, sourceA.Path, sourceB.Path)
	return &d, nil
}

func readSource(src DataSource) ([]model.Initiative, []model.Event, error) {
	p, err := OpenSource(src)
	if err != nil {
		return nil, nil, err
	}
	defer p.Close()
	return ReadAll(p)
}
