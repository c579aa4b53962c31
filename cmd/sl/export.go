package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/swimlane/pkg/export"
	"github.com/vanderheijden86/swimlane/pkg/hooks"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

// exportFlags are the sl export options.
type exportFlags struct {
	output  string
	format  string
	title   string
	eventID string
	zoom    float64
	all     bool
	noHooks bool
}

func exportCmd() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export [initiative]",
		Short: "Render a static SVG, PNG or JSON snapshot of the timeline",
		Long: `Render the continuous layout, week bands, focus state and connection curves
to a file. The format follows --format, or the output extension when no format
is given. With --all every initiative is written to <output>/<id>.<format>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			if f.all {
				return exportAll(cmd.Context(), cmd.OutOrStdout(), a, f)
			}
			id, err := a.initiative(args, true)
			if err != nil {
				return err
			}
			if f.output == "" {
				f.output = id
			}
			format, path, err := export.ResolveFormat(f.format, f.output)
			if err != nil {
				return err
			}
			f.format = format
			events, _ := a.engine.Events(id)

			return withHooks(cmd.OutOrStdout(), f.noHooks, hooks.ExportContext{
				ExportPath:   path,
				ExportFormat: format,
				InitiativeID: id,
				EventCount:   len(events),
				Timestamp:    a.now(),
			}, func() error {
				if _, err := exportOne(a, id, path, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file, or directory with --all")
	cmd.Flags().StringVar(&f.format, "format", "", "svg, png or json")
	cmd.Flags().StringVar(&f.title, "title", "", "title (default: initiative name)")
	cmd.Flags().StringVar(&f.eventID, "event", "", "focused event id")
	cmd.Flags().Float64Var(&f.zoom, "zoom", 1, "zoom factor")
	cmd.Flags().BoolVar(&f.all, "all", false, "export every initiative")
	cmd.Flags().BoolVar(&f.noHooks, "no-hooks", false, "skip .swimlane/hooks.yaml")
	return cmd
}

func exportOne(a *app, id, path string, f exportFlags) (string, error) {
	format, path, err := export.ResolveFormat(f.format, path)
	if err != nil {
		return "", err
	}
	v, err := a.engine.View(id, timeline.ViewRequest{
		Zoom:           f.zoom,
		FocusedEventID: f.eventID,
		Mode:           a.mode,
		Now:            a.now(),
	})
	if err != nil {
		return "", err
	}
	err = export.SaveSnapshot(export.SnapshotOptions{
		Path:   path,
		Format: format,
		Title:  f.title,
		View:   v,
		Layout: a.engine.Layout(),
	})
	if err != nil {
		return "", fmt.Errorf("exporting %s: %w", id, err)
	}
	return path, nil
}

func exportAll(ctx context.Context, out io.Writer, a *app, f exportFlags) error {
	dir := f.output
	if dir == "" {
		dir = "."
	}
	format := strings.ToLower(f.format)
	if format == "" {
		format = export.FormatSVG
	}
	f.format = format

	inits := a.engine.Initiatives()
	if len(inits) == 0 {
		return errNoInitiatives
	}

	total := 0
	for _, in := range inits {
		events, _ := a.engine.Events(in.ID)
		total += len(events)
	}
	hctx := hooks.ExportContext{
		ExportPath:   dir,
		ExportFormat: format,
		EventCount:   total,
		Timestamp:    a.now(),
	}
	return withHooks(out, f.noHooks, hctx, func() error {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for _, in := range inits {
			in := in
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				_, err := exportOne(a, in.ID, filepath.Join(dir, in.ID+"."+format), f)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %d snapshots to %s\n", len(inits), dir)
		return nil
	})
}

// withHooks wraps write in the pre- and post-export hooks configured for the
// working directory. A failing pre-export hook cancels the write.
func withHooks(out io.Writer, noHooks bool, hctx hooks.ExportContext, write func() error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	exec, err := hooks.RunHooks(cwd, hctx, noHooks)
	if err != nil {
		return err
	}
	if exec == nil {
		return write()
	}
	defer func() {
		if s := exec.Summary(); s != "" {
			fmt.Fprint(out, s)
		}
	}()
	if err := exec.RunPreExport(); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	return exec.RunPostExport()
}
