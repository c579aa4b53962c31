package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/swimlane/internal/server"
	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/watcher"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		noWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the timeline over a read-only JSON API",
		Long: `Serve the timeline queries over HTTP:

  GET /api/initiatives
  GET /api/initiatives/{id}
  GET /api/initiatives/{id}/view?zoom=&width=&pan=&event=&mode=
  GET /api/initiatives/{id}/weeks?now=
  GET /api/initiatives/{id}/positions?zoom=
  GET /api/initiatives/{id}/bounds?width=&zoom=
  GET /api/initiatives/{id}/focus?event=
  GET /api/initiatives/{id}/edges?event=&mode=
  GET /healthz
  GET /metrics

The data is reloaded when its files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(logHook)
			if err != nil {
				return err
			}
			h, err := server.New(server.Config{Engine: a.engine, Now: a.now, Mode: a.mode})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noWatch {
				w, err := watcher.NewWatcher(a.source.WatchPaths(),
					watcher.WithOnChange(reloader(a)),
					watcher.WithOnError(func(err error) {
						fmt.Fprintf(os.Stderr, "watch: %v\n", err)
					}),
				)
				if err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					return fmt.Errorf("watching %s: %w", a.source.Path, err)
				}
				defer w.Stop()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %d initiatives from %s on http://%s\n",
				len(a.engine.Initiatives()), a.source.Path, addr)
			return server.ListenAndServe(ctx, addr, h)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload when the data changes")
	return cmd
}

// reloader returns a change callback that reloads a's engine in place.
// Queries keep answering from the previous data until the load completes.
func reloader(a *app) func() {
	var mu sync.Mutex
	return func() {
		mu.Lock()
		defer mu.Unlock()

		p, err := a.openSource()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reload: %v\n", err)
			return
		}
		if c, ok := p.(io.Closer); ok {
			defer c.Close()
		}
		if err := a.engine.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "reload: %v\n", err)
			return
		}
		debug.Log("serve: reloaded %d initiatives", len(a.engine.Initiatives()))
	}
}
