// Package config handles loading and saving swimlane configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/swimlane/config.yaml
//   - Data:    ~/.local/share/swimlane/ (default data directory)
//   - State:   ~/.local/state/swimlane/ (export output, session state)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/swimlane/pkg/layout"
)

const appName = "swimlane"

// LayoutConfig holds the continuous layout constants, in abstract pixels.
type LayoutConfig struct {
	StartOffset float64 `yaml:"start_offset"`
	BaseSpread  float64 `yaml:"base_spread"`
	ItemWidth   float64 `yaml:"item_width"`
	Padding     float64 `yaml:"padding"`
	ColumnWidth float64 `yaml:"column_width"`
}

// ZoomConfig bounds and steps the zoom factor.
type ZoomConfig struct {
	Min            float64 `yaml:"min"`
	Max            float64 `yaml:"max"`
	Step           float64 `yaml:"step"`
	Initial        float64 `yaml:"initial"`
	WheelPanFactor float64 `yaml:"wheel_pan_factor"`
}

// TimelineConfig controls timestamp resolution and connection rendering.
type TimelineConfig struct {
	ContextYear       int           `yaml:"context_year,omitempty"`       // 0 = year of now
	VisualizationMode string        `yaml:"visualization_mode,omitempty"` // dim-only, dim-with-lines
	FrameInterval     time.Duration `yaml:"frame_interval,omitempty"`
}

// DataConfig points at the data provider.
type DataConfig struct {
	Path string `yaml:"path,omitempty"` // JSONL directory or SQLite file
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	CellWidthPx float64 `yaml:"cell_width_px,omitempty"` // layout pixels per terminal column
	DefaultView string  `yaml:"default_view,omitempty"`  // continuous, weeks
}

// Source is a named data location.
type Source struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Config is the top-level configuration for sl.
type Config struct {
	Layout   LayoutConfig   `yaml:"layout"`
	Zoom     ZoomConfig     `yaml:"zoom"`
	Timeline TimelineConfig `yaml:"timeline"`
	Data     DataConfig     `yaml:"data,omitempty"`
	UI       UIConfig       `yaml:"ui,omitempty"`
	Sources  []Source       `yaml:"sources,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	l := layout.DefaultConfig()
	return Config{
		Layout: LayoutConfig{
			StartOffset: l.StartOffset,
			BaseSpread:  l.BaseSpread,
			ItemWidth:   l.ItemWidth,
			Padding:     l.Padding,
			ColumnWidth: l.ColumnWidth,
		},
		Zoom: ZoomConfig{
			Min:            l.MinZoom,
			Max:            l.MaxZoom,
			Step:           l.ZoomStep,
			Initial:        1,
			WheelPanFactor: 1.5,
		},
		Timeline: TimelineConfig{
			VisualizationMode: "dim-only",
			FrameInterval:     16 * time.Millisecond,
		},
		UI: UIConfig{
			CellWidthPx: 8,
			DefaultView: "continuous",
		},
	}
}

// LayoutEngineConfig converts the layout and zoom sections for pkg/layout.
func (c Config) LayoutEngineConfig() layout.Config {
	l := layout.DefaultConfig()
	l.StartOffset = c.Layout.StartOffset
	l.BaseSpread = c.Layout.BaseSpread
	l.ItemWidth = c.Layout.ItemWidth
	l.Padding = c.Layout.Padding
	l.ColumnWidth = c.Layout.ColumnWidth
	l.MinZoom = c.Zoom.Min
	l.MaxZoom = c.Zoom.Max
	l.ZoomStep = c.Zoom.Step
	return l
}

// Validate reports configuration values the engine cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min {
		errs = append(errs, fmt.Errorf("zoom range [%g, %g] is invalid", c.Zoom.Min, c.Zoom.Max))
	}
	if c.Zoom.Step <= 1 {
		errs = append(errs, fmt.Errorf("zoom step %g must be greater than 1", c.Zoom.Step))
	}
	if c.Layout.BaseSpread <= 0 || c.Layout.ItemWidth <= 0 || c.Layout.ColumnWidth <= 0 {
		errs = append(errs, errors.New("layout base_spread, item_width and column_width must be positive"))
	}
	if c.Layout.Padding < 0 {
		errs = append(errs, fmt.Errorf("layout padding %g must not be negative", c.Layout.Padding))
	}
	switch c.Timeline.VisualizationMode {
	case "", "dim-only", "dim-with-lines":
	default:
		errs = append(errs, fmt.Errorf("unknown visualization_mode %q", c.Timeline.VisualizationMode))
	}
	switch c.UI.DefaultView {
	case "", "continuous", "weeks":
	default:
		errs = append(errs, fmt.Errorf("unknown default_view %q", c.UI.DefaultView))
	}
	if c.Timeline.ContextYear < 0 {
		errs = append(errs, fmt.Errorf("context_year %d must not be negative", c.Timeline.ContextYear))
	}
	return errors.Join(errs...)
}

// ConfigDir returns the XDG config directory for swimlane.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for swimlane.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for swimlane.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	for i := range cfg.Sources {
		cfg.Sources[i].Path = expandHome(cfg.Sources[i].Path)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// FindSource returns the source with the given name, or nil.
func (c Config) FindSource(name string) *Source {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i]
		}
	}
	return nil
}

// ResolvedPath returns the source path with ~ expanded.
func (s Source) ResolvedPath() string {
	return expandHome(s.Path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
