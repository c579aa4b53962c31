package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/swimlane/pkg/debug"
)

// maxStderrInSummary bounds the stderr excerpt printed per failed hook.
const maxStderrInSummary = 200

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Executor runs the hooks of a Config for one export.
type Executor struct {
	config  *Config
	ctx     ExportContext
	results []Result
}

// NewExecutor creates an executor for config and the export described by ctx.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, ctx: ctx}
}

// RunPreExport runs pre-export hooks in order and stops at the first failing
// hook whose policy is fail.
func (e *Executor) RunPreExport() error {
	return e.runPhase(PreExport, e.config.Hooks.PreExport)
}

// RunPostExport runs post-export hooks in the same way as RunPreExport.
func (e *Executor) RunPostExport() error {
	return e.runPhase(PostExport, e.config.Hooks.PostExport)
}

func (e *Executor) runPhase(phase HookPhase, hooks []Hook) error {
	for _, h := range hooks {
		r := e.run(phase, h)
		e.results = append(e.results, r)
		if r.Success {
			debug.Log("hook %s (%s) ok in %s", h.Name, phase, r.Duration)
			continue
		}
		debug.Log("hook %s (%s) failed: %v", h.Name, phase, r.Error)
		if h.OnError != OnErrorContinue {
			return fmt.Errorf("%s hook %q failed: %w", phase, h.Name, r.Error)
		}
	}
	return nil
}

func (e *Executor) run(phase HookPhase, h Hook) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	cmd.Env = append(os.Environ(), e.ctx.ToEnv()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Stop waiting on grandchildren that inherited the pipes.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.Error = fmt.Errorf("timed out after %s", timeout)
	case err != nil:
		r.Error = err
	default:
		r.Success = true
	}
	return r
}

// Results returns every hook run so far, in order.
func (e *Executor) Results() []Result {
	return append([]Result(nil), e.results...)
}

// Summary describes the runs for the terminal. It is empty when no hook ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&b, "  %s (%s): %v\n", r.Hook.Name, r.Phase, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, "    stderr: %s\n", truncate(r.Stderr, maxStderrInSummary))
		}
	}
	return fmt.Sprintf("Hooks: %d succeeded, %d failed\n", ok, failed) + b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// RunHooks loads hooks for projectDir and returns an executor, or nil when
// noHooks is set or nothing is configured. The caller runs the phases.
func RunHooks(projectDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	l := NewLoader(WithProjectDir(projectDir))
	if err := l.Load(); err != nil {
		return nil, err
	}
	for _, w := range l.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !l.HasHooks() {
		return nil, nil
	}
	return NewExecutor(l.Config(), ctx), nil
}
