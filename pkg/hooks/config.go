// Package hooks runs user commands around sl export. Hooks are configured in
// .swimlane/hooks.yaml under the project directory and run before the
// snapshot is rendered (pre-export) or after it is written (post-export).
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase represents when a hook runs
type HookPhase string

const (
	// PreExport runs before the snapshot is rendered. Failure cancels export.
	PreExport HookPhase = "pre-export"
	// PostExport runs after the snapshot is written. Failure is reported but
	// does not undo the export.
	PostExport HookPhase = "post-export"
)

// On-error policies.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// ConfigDir and ConfigFile locate hooks.yaml relative to the project dir.
const (
	ConfigDir  = ".swimlane"
	ConfigFile = "hooks.yaml"
)

// Hook defines a single hook configuration
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"` // run with sh -c
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"` // values are $-expanded
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Config holds all hook configurations
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`
}

// HooksByPhase organizes hooks by their execution phase
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// ExportContext describes the export and reaches hooks as SL_* variables.
type ExportContext struct {
	ExportPath   string // SL_EXPORT_PATH: output file, or directory for --all
	ExportFormat string // SL_EXPORT_FORMAT: svg, png or json
	InitiativeID string // SL_INITIATIVE: empty for --all
	EventCount   int    // SL_EVENT_COUNT
	Timestamp    time.Time
}

// ToEnv converts export context to environment variables
func (c ExportContext) ToEnv() []string {
	return []string{
		"SL_EXPORT_PATH=" + c.ExportPath,
		"SL_EXPORT_FORMAT=" + c.ExportFormat,
		"SL_INITIATIVE=" + c.InitiativeID,
		fmt.Sprintf("SL_EVENT_COUNT=%d", c.EventCount),
		"SL_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// Loader loads hook configuration from .swimlane/hooks.yaml
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures the loader
type LoaderOption func(*Loader)

// WithProjectDir sets the project directory (default: current directory)
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader creates a new hook loader with options
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Path returns the hooks.yaml location.
func (l *Loader) Path() string {
	return filepath.Join(l.projectDir, ConfigDir, ConfigFile)
}

// Load reads hooks.yaml. A missing file means no hooks.
func (l *Loader) Load() error {
	configPath := l.Path()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", configPath, err)
	}

	config.Hooks.PreExport, l.warnings = normalizeHooks(config.Hooks.PreExport, PreExport, l.warnings)
	config.Hooks.PostExport, l.warnings = normalizeHooks(config.Hooks.PostExport, PostExport, l.warnings)
	l.config = &config
	return nil
}

// normalizeHooks applies defaults, drops empty commands, and accumulates warnings.
func normalizeHooks(hooks []Hook, phase HookPhase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i := range hooks {
		hook := hooks[i]
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout == 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			hook.OnError = OnErrorContinue
			if phase == PreExport {
				hook.OnError = OnErrorFail
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %d: unknown on_error %q, using %s", phase, i+1, hook.OnError, OnErrorFail))
			hook.OnError = OnErrorFail
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration (or empty if not loaded)
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks returns true if any hooks are configured
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreExport) > 0 || len(l.config.Hooks.PostExport) > 0
}

// GetHooks returns hooks for a specific phase
func (l *Loader) GetHooks(phase HookPhase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreExport:
		return l.config.Hooks.PreExport
	case PostExport:
		return l.config.Hooks.PostExport
	default:
		return nil
	}
}

// Warnings returns any warnings from loading
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as Go durations ("10s") or bare seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Must mirror Hook except for Timeout.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}
	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout == "" {
		return nil
	}
	d, err := time.ParseDuration(dto.Timeout)
	if err == nil {
		h.Timeout = d
		return nil
	}
	var seconds float64
	if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr != nil {
		return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
	}
	h.Timeout = time.Duration(seconds * float64(time.Second))
	return nil
}
