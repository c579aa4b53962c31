package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/swimlane/pkg/timeline"
	"github.com/vanderheijden86/swimlane/pkg/ui"
)

func tuiCmd() *cobra.Command {
	var (
		view    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "tui [initiative]",
		Short: "Browse the timeline interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args, true)
			if err != nil && !errors.Is(err, errNoInitiatives) {
				return err
			}
			if view == "" {
				view = a.cfg.UI.DefaultView
			}
			kind, err := ui.ParseViewKind(view)
			if err != nil {
				return err
			}

			session := timeline.NewSession(a.engine, timeline.SessionOptions{
				InitiativeID:   id,
				InitialZoom:    a.cfg.Zoom.Initial,
				WheelPanFactor: a.cfg.Zoom.WheelPanFactor,
				Mode:           a.mode,
			})

			var paths []string
			if !noWatch {
				paths = a.source.WatchPaths()
			}
			worker, err := ui.NewReloadWorker(ui.WorkerConfig{Paths: paths, Open: a.openSource})
			if err != nil {
				return err
			}

			return ui.Run(ui.Options{
				Session:       session,
				Worker:        worker,
				CellWidthPx:   a.cfg.UI.CellWidthPx,
				FrameInterval: a.cfg.Timeline.FrameInterval,
				View:          kind,
				Now:           a.now,
				SourceLabel:   a.source.Path,
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "initial view: continuous or weeks (default from config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload when the data changes")
	return cmd
}
