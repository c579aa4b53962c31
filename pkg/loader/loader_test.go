package loader_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/swimlane/pkg/loader"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(warnings *[]string) loader.ParseOptions {
	return loader.ParseOptions{WarningHandler: func(msg string) { *warnings = append(*warnings, msg) }}
}

func TestGetDataDir_RespectsEnvVar(t *testing.T) {
	t.Setenv(loader.DirEnvVar, "/custom/data")
	got, err := loader.GetDataDir("/ignored")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/custom/data" {
		t.Errorf("expected env override, got %q", got)
	}
}

func TestGetDataDir_FallsBack(t *testing.T) {
	t.Setenv(loader.DirEnvVar, "")
	if got, _ := loader.GetDataDir("/explicit"); got != "/explicit" {
		t.Errorf("expected explicit path, got %q", got)
	}
	cwd, _ := os.Getwd()
	if got, _ := loader.GetDataDir(""); got != filepath.Join(cwd, ".swimlane") {
		t.Errorf("expected .swimlane under cwd, got %q", got)
	}
}

func TestParseInitiatives_NormalizesStatus(t *testing.T) {
	in := `{"id":"sl1","name":"Checkout","status":"On Track"}
{"id":"sl2","name":"Billing","status":"FINISHED"}
`
	inits, err := loader.ParseInitiatives(strings.NewReader(in), loader.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(inits) != 2 {
		t.Fatalf("expected 2 initiatives, got %d", len(inits))
	}
	if inits[0].Status != model.StatusOnTrack || inits[1].Status != model.StatusFinished {
		t.Errorf("unexpected statuses %q %q", inits[0].Status, inits[1].Status)
	}
}

func TestParseEvents_SkipsMalformedAndInvalid(t *testing.T) {
	var warnings []string
	in := `{"id":"e1","initiativeId":"sl1","type":"Meeting","title":"Kickoff","timestamp":"Today"}
{not valid json}
{"id":"e2","title":"no initiative"}
{"id":"e3","initiativeId":"sl1","type":"party"}

{"id":"e4","initiativeId":"sl1","type":"decision","linkedEventId":"e1","criticality":"URGENT"}
`
	events, err := loader.ParseEvents(strings.NewReader(in), collect(&warnings))
	if err != nil {
		t.Fatalf("should skip bad lines, got %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 valid events, got %d", len(events))
	}
	if events[0].Type != model.EventMeeting {
		t.Errorf("expected type normalized to meeting, got %q", events[0].Type)
	}
	if events[1].LinkedEventID != "e1" || events[1].Criticality != model.CriticalityUrgent {
		t.Errorf("unexpected event %+v", events[1])
	}
	if len(warnings) != 3 {
		t.Errorf("expected 3 warnings, got %d: %v", len(warnings), warnings)
	}
}

func TestParseEvents_StripsBOM(t *testing.T) {
	in := "\xEF\xBB\xBF" + `{"id":"e1","initiativeId":"sl1"}` + "\n"
	events, err := loader.ParseEvents(strings.NewReader(in), loader.ParseOptions{})
	if err != nil || len(events) != 1 {
		t.Fatalf("expected 1 event after BOM strip, got %d (%v)", len(events), err)
	}
}

func TestParseEvents_LineTooLong(t *testing.T) {
	var warnings []string
	long := `{"id":"big","initiativeId":"sl1","summary":"` + strings.Repeat("x", 256) + `"}`
	in := long + "\n" + `{"id":"small","initiativeId":"sl1"}` + "\n"
	opts := collect(&warnings)
	opts.BufferSize = 64
	events, err := loader.ParseEvents(strings.NewReader(in), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != "small" {
		t.Errorf("expected only the short line, got %+v", events)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "too long") {
		t.Errorf("expected a too-long warning, got %v", warnings)
	}
}

func TestWriteDirRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	inits := []model.Initiative{{ID: "sl1", Name: "Checkout", Status: model.StatusBlocked}}
	events := []model.Event{
		{ID: "e1", InitiativeID: "sl1", Type: model.EventAlert, Title: "Outage", Timestamp: "2 days ago",
			Evidence: []model.Evidence{{Type: "doc", URL: "https://example.com/pm"}}},
		{ID: "e2", InitiativeID: "sl1", Timestamp: "Jan 30", LinkedEventID: "e1"},
	}
	if err := loader.WriteDir(dir, inits, events); err != nil {
		t.Fatal(err)
	}

	store, err := loader.Open(dir, loader.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	gotInits, err := store.ListInitiatives()
	if err != nil || len(gotInits) != 1 || gotInits[0].Status != model.StatusBlocked {
		t.Fatalf("unexpected initiatives %+v (%v)", gotInits, err)
	}
	got, _ := store.ListEvents("sl1")
	if len(got) != 2 || got[0].Evidence[0].URL != "https://example.com/pm" || got[1].LinkedEventID != "e1" {
		t.Errorf("unexpected events %+v", got)
	}
	if none, _ := store.ListEvents("other"); len(none) != 0 {
		t.Errorf("expected no events for unknown initiative, got %d", len(none))
	}
}

func TestOpen_MissingInitiatives(t *testing.T) {
	if _, err := loader.Open(t.TempDir(), loader.ParseOptions{}); err == nil {
		t.Error("expected error when initiatives.jsonl is missing")
	}
}

func TestStore_MissingEventsIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, loader.InitiativesFile, `{"id":"sl1","name":"A"}`+"\n")
	store, err := loader.Open(dir, loader.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.All()) != 0 {
		t.Errorf("expected no events, got %d", len(store.All()))
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := loader.WriteJSONL(&buf, []model.Initiative{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"id":"b"`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLoadGeneratedDirectory(t *testing.T) {
	inits, events := testutil.QuickDataset(4, 10)
	dir := testutil.WriteDataDir(t, inits, events)

	var warnings []string
	gotInits, err := loader.LoadInitiativesFromFile(filepath.Join(dir, loader.InitiativesFile), collect(&warnings))
	if err != nil {
		t.Fatal(err)
	}
	gotEvents, err := loader.LoadEventsFromFile(filepath.Join(dir, loader.EventsFile), collect(&warnings))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	testutil.AssertJSONEqual(t, inits, gotInits)
	testutil.AssertEventCount(t, gotEvents, 40)
	testutil.AssertNoDuplicateIDs(t, gotEvents)
}
