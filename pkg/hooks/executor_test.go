package hooks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	cfgDir := filepath.Join(dir, ConfigDir)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, ConfigFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}
}

func preHooks(hooks ...Hook) *Config  { return &Config{Hooks: HooksByPhase{PreExport: hooks}} }
func postHooks(hooks ...Hook) *Config { return &Config{Hooks: HooksByPhase{PostExport: hooks}} }

var sampleExport = ExportContext{
	ExportPath:   "/tmp/sl1.svg",
	ExportFormat: "svg",
	InitiativeID: "sl1",
	EventCount:   12,
	Timestamp:    time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC),
}

func TestExportContextToEnv(t *testing.T) {
	got := strings.Join(sampleExport.ToEnv(), "\n")
	for _, want := range []string{
		"SL_EXPORT_PATH=/tmp/sl1.svg",
		"SL_EXPORT_FORMAT=svg",
		"SL_INITIATIVE=sl1",
		"SL_EVENT_COUNT=12",
		"SL_TIMESTAMP=2026-02-02T09:30:00Z",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in env:\n%s", want, got)
		}
	}
}

func TestLoaderNoConfig(t *testing.T) {
	l := NewLoader(WithProjectDir(t.TempDir()))
	if err := l.Load(); err != nil {
		t.Fatalf("expected no error for missing config, got: %v", err)
	}
	if l.HasHooks() {
		t.Error("expected no hooks when config is missing")
	}
}

func TestLoaderAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, `
hooks:
  pre-export:
    - command: ./check.sh
      timeout: 5
  post-export:
    - name: publish
      command: rsync -a "$SL_EXPORT_PATH" host:/srv
      timeout: 2m
      env:
        TARGET: ${HOME}
    - command: "   "
    - command: notify
      on_error: sometimes
`)
	l := NewLoader(WithProjectDir(dir))
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}

	pre := l.GetHooks(PreExport)
	if len(pre) != 1 || pre[0].Name != "pre-export-1" || pre[0].OnError != OnErrorFail || pre[0].Timeout != 5*time.Second {
		t.Errorf("unexpected pre-export hooks %+v", pre)
	}
	post := l.GetHooks(PostExport)
	if len(post) != 2 {
		t.Fatalf("expected 2 post-export hooks, got %+v", post)
	}
	if post[0].OnError != OnErrorContinue || post[0].Timeout != 2*time.Minute || post[0].Env["TARGET"] != "${HOME}" {
		t.Errorf("unexpected publish hook %+v", post[0])
	}
	if post[1].OnError != OnErrorFail {
		t.Errorf("expected unknown on_error to fall back to fail, got %q", post[1].OnError)
	}
	if len(l.Warnings()) != 2 {
		t.Errorf("expected 2 warnings, got %v", l.Warnings())
	}
	if l.GetHooks("mid-export") != nil {
		t.Error("expected nil for unknown phase")
	}
}

func TestLoaderInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeHooksFile(t, dir, "hooks: [unclosed")
	if err := NewLoader(WithProjectDir(dir)).Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestHookUnmarshalYAMLInvalidTimeout(t *testing.T) {
	var h Hook
	if err := yaml.Unmarshal([]byte("command: x\ntimeout: soon\n"), &h); err == nil {
		t.Error("expected error for invalid timeout")
	}
}

func TestExecutorRunsHookWithExportEnv(t *testing.T) {
	exec := NewExecutor(preHooks(Hook{
		Name:    "env",
		Command: "echo $SL_INITIATIVE $SL_EVENT_COUNT $SL_EXPORT_FORMAT",
		Timeout: 5 * time.Second,
		OnError: OnErrorFail,
	}), sampleExport)
	if err := exec.RunPreExport(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	results := exec.Results()
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Stdout != "sl1 12 svg" {
		t.Errorf("expected export env in output, got %q", results[0].Stdout)
	}
}

func TestExecutorExpandsCustomEnv(t *testing.T) {
	t.Setenv("SL_TEST_HOOK_VAR", "expanded")
	exec := NewExecutor(preHooks(Hook{
		Name:    "custom",
		Command: "echo $CUSTOM",
		Timeout: 5 * time.Second,
		Env:     map[string]string{"CUSTOM": "${SL_TEST_HOOK_VAR}"},
	}), sampleExport)
	if err := exec.RunPreExport(); err != nil {
		t.Fatal(err)
	}
	if got := exec.Results()[0].Stdout; got != "expanded" {
		t.Errorf("expected expanded, got %q", got)
	}
}

func TestPreExportStopsOnFail(t *testing.T) {
	exec := NewExecutor(preHooks(
		Hook{Name: "fail", Command: "exit 3", Timeout: time.Second, OnError: OnErrorFail},
		Hook{Name: "never", Command: "echo no", Timeout: time.Second, OnError: OnErrorFail},
	), sampleExport)
	if err := exec.RunPreExport(); err == nil {
		t.Fatal("expected error")
	}
	if n := len(exec.Results()); n != 1 {
		t.Errorf("expected the second hook to be skipped, got %d results", n)
	}
}

func TestPostExportContinue(t *testing.T) {
	exec := NewExecutor(postHooks(
		Hook{Name: "flaky", Command: "echo oops >&2; exit 1", Timeout: time.Second, OnError: OnErrorContinue},
		Hook{Name: "after", Command: "echo still-running", Timeout: time.Second, OnError: OnErrorContinue},
	), sampleExport)
	if err := exec.RunPostExport(); err != nil {
		t.Errorf("expected no error with continue, got %v", err)
	}
	results := exec.Results()
	if len(results) != 2 || results[0].Success || !results[1].Success {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[0].Stderr != "oops" {
		t.Errorf("expected stderr oops, got %q", results[0].Stderr)
	}
}

func TestExecutorTimeout(t *testing.T) {
	exec := NewExecutor(preHooks(Hook{Name: "slow", Command: "sleep 10", Timeout: 100 * time.Millisecond, OnError: OnErrorFail}), sampleExport)
	if err := exec.RunPreExport(); err == nil {
		t.Fatal("expected timeout error")
	}
	r := exec.Results()[0]
	if r.Success || r.Duration < 100*time.Millisecond {
		t.Errorf("unexpected timeout result %+v", r)
	}
	if !strings.Contains(r.Error.Error(), "timed out") {
		t.Errorf("expected timed out error, got %v", r.Error)
	}
}

func TestExecutorCommandNotFound(t *testing.T) {
	exec := NewExecutor(preHooks(Hook{Name: "missing", Command: "definitely-not-a-real-command-xyz", Timeout: time.Second, OnError: OnErrorFail}), ExportContext{})
	if err := exec.RunPreExport(); err == nil {
		t.Fatal("expected error for missing command")
	}
	if r := exec.Results()[0]; r.Success || r.Stderr == "" {
		t.Errorf("expected failure with shell stderr, got %+v", r)
	}
}

func TestSummaryTruncatesStderr(t *testing.T) {
	exec := NewExecutor(&Config{Hooks: HooksByPhase{
		PreExport:  []Hook{{Name: "ok", Command: "true", Timeout: time.Second, OnError: OnErrorContinue}},
		PostExport: []Hook{{Name: "noisy", Command: "printf '%0300d' 0 1>&2; exit 1", Timeout: time.Second, OnError: OnErrorContinue}},
	}}, ExportContext{})
	_ = exec.RunPreExport()
	_ = exec.RunPostExport()

	summary := exec.Summary()
	if !strings.Contains(summary, "1 succeeded, 1 failed") {
		t.Errorf("unexpected summary:\n%s", summary)
	}
	for _, line := range strings.Split(summary, "\n") {
		if strings.Contains(line, "stderr:") && (len(line) > 230 || !strings.HasSuffix(line, "...")) {
			t.Errorf("expected a truncated stderr line, got %q", line)
		}
	}
	if NewExecutor(nil, ExportContext{}).Summary() != "" {
		t.Error("expected empty summary when nothing ran")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 8); got != "abcde..." {
		t.Errorf("expected abcde..., got %q", got)
	}
}

func TestRunHooks(t *testing.T) {
	dir := t.TempDir()
	if exec, err := RunHooks(dir, sampleExport, false); err != nil || exec != nil {
		t.Fatalf("missing config should give no executor, got %v %v", exec, err)
	}

	writeHooksFile(t, dir, "hooks:\n  post-export:\n    - command: echo ok\n")
	if exec, err := RunHooks(dir, sampleExport, true); err != nil || exec != nil {
		t.Fatalf("noHooks should short-circuit, got %v %v", exec, err)
	}
	exec, err := RunHooks(dir, sampleExport, false)
	if err != nil || exec == nil {
		t.Fatalf("expected an executor, got %v %v", exec, err)
	}
	if err := exec.RunPostExport(); err != nil {
		t.Fatal(err)
	}
	if len(exec.Results()) != 1 {
		t.Errorf("expected one run, got %+v", exec.Results())
	}
}
