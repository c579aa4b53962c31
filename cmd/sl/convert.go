package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/swimlane/internal/datasource"
	"github.com/vanderheijden86/swimlane/pkg/loader"
)

// isSQLitePath reports whether path names a database file rather than a
// JSONL directory.
func isSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func convertCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "convert <source> <destination>",
		Short: "Copy timeline data between a JSONL directory and a SQLite file",
		Long: `Copy every initiative and event from source to destination. A destination
ending in .db, .sqlite or .sqlite3 is written as SQLite, anything else as a
JSONL directory. An existing destination is replaced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := datasource.Detect(args[0])
			if err != nil {
				return err
			}
			p, err := datasource.OpenSource(src)
			if err != nil {
				return err
			}
			inits, events, err := datasource.ReadAll(p)
			p.Close()
			if err != nil {
				return fmt.Errorf("reading %s: %w", src.Path, err)
			}

			dst := args[1]
			if isSQLitePath(dst) {
				err = datasource.WriteSQLite(dst, inits, events)
			} else {
				err = loader.WriteDir(dst, inits, events)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d initiatives and %d events to %s\n", len(inits), len(events), dst)

			if !verify {
				return nil
			}
			out, err := datasource.Detect(dst)
			if err != nil {
				return err
			}
			diff, err := datasource.CompareSources(src, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(diff.Summary(), "\n"))
			if diff.HasInconsistencies() {
				return errors.New("verification failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "read the destination back and compare")
	return cmd
}
