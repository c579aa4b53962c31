package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/vanderheijden86/swimlane/internal/datasource"
	"github.com/vanderheijden86/swimlane/pkg/config"
	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

// app is the loaded state shared by the subcommands.
type app struct {
	cfg    config.Config
	engine *timeline.Engine
	source datasource.DataSource
	now    func() time.Time
	mode   timeline.VisualizationMode
}

// loadConfig reads the config file and layers flags and environment on top.
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	if v := viper.GetString("data"); v != "" {
		cfg.Data.Path = v
	}
	if v := viper.GetString("mode"); v != "" {
		cfg.Timeline.VisualizationMode = v
	}
	if v := viper.GetInt("context-year"); v > 0 {
		cfg.Timeline.ContextYear = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// referenceNow returns the clock for the run: fixed when --now is given.
func referenceNow() (func() time.Time, error) {
	raw := viper.GetString("now")
	if raw == "" {
		return time.Now, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --now %q: want RFC 3339", raw)
	}
	return func() time.Time { return t }, nil
}

func logHook(d diag.Diagnostic) {
	debug.Log("diag: %s", d)
}

// openApp loads the configured data source into a fresh engine. A nil hook
// logs diagnostics through the debug logger.
func openApp(hook diag.Hook) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	now, err := referenceNow()
	if err != nil {
		return nil, err
	}
	mode, err := timeline.ParseMode(cfg.Timeline.VisualizationMode)
	if err != nil {
		return nil, err
	}
	if hook == nil {
		hook = logHook
	}
	e := timeline.NewEngine(timeline.Options{
		Layout:      cfg.LayoutEngineConfig(),
		ContextYear: cfg.Timeline.ContextYear,
		Hook:        hook,
		Now:         now,
	})

	p, src, err := datasource.Open(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("opening data: %w", err)
	}
	defer p.Close()
	if err := e.Load(p); err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.Path, err)
	}
	debug.Log("loaded %d initiatives from %s", len(e.Initiatives()), src)

	return &app{cfg: cfg, engine: e, source: src, now: now, mode: mode}, nil
}

// openSource reopens the data source for a reload.
func (a *app) openSource() (timeline.Provider, error) {
	return datasource.OpenSource(a.source)
}

var errNoInitiatives = errors.New("no initiatives loaded")

// initiative picks the initiative for a command: the first argument, then
// --initiative, then an interactive choice on a terminal, then the first one.
func (a *app) initiative(args []string, interactive bool) (string, error) {
	id := viper.GetString("initiative")
	if len(args) > 0 {
		id = args[0]
	}
	if id != "" {
		if !a.engine.HasInitiative(id) {
			return "", fmt.Errorf("%w: %s", timeline.ErrUnknownInitiative, id)
		}
		return id, nil
	}

	inits := a.engine.Initiatives()
	switch {
	case len(inits) == 0:
		return "", errNoInitiatives
	case len(inits) == 1 || !interactive || !isTerminal():
		return inits[0].ID, nil
	}
	return pickInitiative(inits)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func pickInitiative(inits []model.Initiative) (string, error) {
	opts := make([]huh.Option[string], 0, len(inits))
	for _, in := range inits {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s  %s (%s)", in.ID, in.Name, in.Status), in.ID))
	}
	id := inits[0].ID
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Which initiative?").
			Options(opts...).
			Height(min(len(opts)+2, 12)).
			Value(&id),
	)).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		return "", err
	}
	return id, nil
}

// terminalWidthPx converts the terminal width to layout pixels, falling
// back to fallback when stdout is not a terminal.
func terminalWidthPx(cellPx, fallback float64) float64 {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return float64(w) * cellPx
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	return tw
}
