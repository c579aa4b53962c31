// Command sl renders initiative swimlane timelines in the terminal, as static
// snapshots, or over a read-only HTTP API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vanderheijden86/swimlane/pkg/debug"
	"github.com/vanderheijden86/swimlane/pkg/version"

	// Must initialise before the TUI packages probe the terminal.
	_ "github.com/vanderheijden86/swimlane/pkg/ttyguard"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sl",
		Short: "Swimlane timeline viewer",
		Long: `sl lays out the events of each initiative on a horizontal timeline.

Data comes from a JSONL directory (initiatives.jsonl, events.jsonl) or a SQLite
file. Settings are read from $XDG_CONFIG_HOME/swimlane/config.yaml; flags and
SWIMLANE_* environment variables override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("debug") {
				debug.SetEnabled(true)
			}
			return nil
		},
	}
	addPersistentFlags(root)
	registerCommands(root)
	return root
}

func main() {
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SWIMLANE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $XDG_CONFIG_HOME/swimlane/config.yaml)")
	pf.StringP("data", "d", "", "JSONL data directory or SQLite file")
	pf.StringP("initiative", "i", "", "initiative id")
	pf.String("mode", "", "visualization mode: dim-only or dim-with-lines")
	pf.Int("context-year", 0, "year used to complete partial dates (0 = current year)")
	pf.String("now", "", "reference time, RFC 3339 (default: the current time)")
	pf.Bool("json", false, "output JSON")
	pf.Bool("debug", false, "log to stderr")
	for _, name := range []string{"config", "data", "initiative", "mode", "context-year", "now", "json", "debug"} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func registerCommands(root *cobra.Command) {
	root.AddCommand(
		tuiCmd(),
		initiativesCmd(),
		weeksCmd(),
		positionsCmd(),
		boundsCmd(),
		focusCmd(),
		edgesCmd(),
		checkCmd(),
		exportCmd(),
		serveCmd(),
		convertCmd(),
		versionCmd(),
	)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
