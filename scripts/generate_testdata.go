//go:build ignore

// generate_testdata.go creates sample timeline data directories.
// Usage: go run scripts/generate_testdata.go [output-dir]
//
// Creates (under testdata/samples by default):
//
//	small/   (3 initiatives, 12 events each)
//	medium/  (10 initiatives, 60 events each)
//	large/   (40 initiatives, 250 events each)
//
// Each directory holds initiatives.jsonl and events.jsonl and can be opened
// with sl --data <dir>.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/loader"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/testutil"
)

type datasetSpec struct {
	name        string
	initiatives int
	eventsPer   int
	density     float64
}

var datasets = []datasetSpec{
	{"small", 3, 12, 0.4},
	{"medium", 10, 60, 0.25},
	{"large", 40, 250, 0.1},
}

var titles = []string{
	"Kickoff", "Vendor review", "Budget sign-off", "Design freeze", "Security audit",
	"Load test", "Go/no-go", "Rollout", "Retro", "Incident follow-up",
}

func main() {
	outputDir := filepath.Join("testdata", "samples")
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d initiatives x %d events)...\n", ds.name, ds.initiatives, ds.eventsPer)

		cfg := testutil.GeneratorConfig{
			Seed:     int64(ds.initiatives*1000 + ds.eventsPer), // Reproducible per-size
			IDPrefix: "EV",
			BaseTime: time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC),
			Spacing:  18 * time.Hour,
			Style:    testutil.StyleMixed,
			TypeMix: []model.EventType{
				model.EventMeeting, model.EventDecision, model.EventCommitment,
				model.EventDocument, model.EventAlert, model.EventMilestone,
			},
			CriticalityMix: []model.Criticality{"", "", model.CriticalityNormal, model.CriticalityWarning, model.CriticalityUrgent},
			Shuffle:        true,
		}
		inits, events := testutil.New(cfg).Dataset(ds.initiatives, ds.eventsPer, ds.density)
		addRealisticContent(events)

		dir := filepath.Join(outputDir, ds.name)
		if err := loader.WriteDir(dir, inits, events); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d events, %d links)\n", dir, len(events), testutil.LinkCount(events))
	}

	fmt.Println("\nDone! Sample data created in", outputDir)
}

func addRealisticContent(events []model.Event) {
	for i := range events {
		e := &events[i]
		e.Title = titles[i%len(titles)]
		e.Actor = fmt.Sprintf("user%d", i%7+1)
		if i%3 == 0 {
			e.Summary = fmt.Sprintf("%s for %s.", e.Title, e.InitiativeID)
		}
	}
}
