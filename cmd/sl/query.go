package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vanderheijden86/swimlane/pkg/diag"
	"github.com/vanderheijden86/swimlane/pkg/layout"
)

const dateLayout = "Mon Jan 2 2006"

func initiativesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initiatives",
		Short: "List initiatives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			inits := a.engine.Initiatives()
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), inits)
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"ID", "Name", "Status", "Events"})
			for _, in := range inits {
				evs, _ := a.engine.Events(in.ID)
				tw.AppendRow(table.Row{in.ID, in.Name, in.Status, len(evs)})
			}
			tw.Render()
			return nil
		},
	}
}

func weeksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weeks [initiative]",
		Short: "Bucket an initiative's events into the eight-week window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args, true)
			if err != nil {
				return err
			}
			buckets, err := a.engine.WeekBuckets(id, a.now())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), buckets)
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"Week", "From", "To", "Events"})
			for _, b := range buckets {
				label := b.Week.Label
				if b.Week.IsCurrentWeek {
					label = "» " + label
				}
				names := make([]string, 0, len(b.Events))
				for _, ev := range b.Events {
					names = append(names, fmt.Sprintf("%s %s", ev.ID, ev.Title))
				}
				tw.AppendRow(table.Row{label, b.Week.StartDate.Format("Jan 2"), b.Week.EndDate.Format("Jan 2"), strings.Join(names, "\n")})
			}
			tw.Render()
			return nil
		},
	}
}

func positionsCmd() *cobra.Command {
	var zoom float64
	cmd := &cobra.Command{
		Use:   "positions [initiative]",
		Short: "Show each event's x position on the continuous timeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args, true)
			if err != nil {
				return err
			}
			pos, err := a.engine.ContinuousPositions(id, zoom)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), pos)
			}
			items, err := a.engine.Items(id)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"#", "ID", "Resolved", "Raw", "X"})
			for i, it := range items {
				tw.AppendRow(table.Row{i, it.Event.ID, it.Time.Format(dateLayout), it.Event.Timestamp, pos[it.Event.ID]})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "zoom factor")
	return cmd
}

// boundsReport is the JSON shape of sl bounds.
type boundsReport struct {
	Zoom           float64       `json:"zoom"`
	ContainerWidth float64       `json:"containerWidth"`
	Content        layout.Bounds `json:"content"`
	Drag           layout.Bounds `json:"drag"`
	CenterPan      float64       `json:"centerPan"`
}

func boundsCmd() *cobra.Command {
	var zoom, width float64
	cmd := &cobra.Command{
		Use:   "bounds [initiative]",
		Short: "Show the content extent and pan range for a container width",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args, true)
			if err != nil {
				return err
			}
			if width <= 0 {
				width = terminalWidthPx(a.cfg.UI.CellWidthPx, 1280)
			}
			items, err := a.engine.Items(id)
			if err != nil {
				return err
			}
			drag, err := a.engine.DragBounds(id, width, zoom)
			if err != nil {
				return err
			}
			le := a.engine.Layout()
			zoom = le.ClampZoom(zoom)
			content, _ := le.ContentBounds(len(items), zoom)
			r := boundsReport{
				Zoom:           zoom,
				ContainerWidth: width,
				Content:        content,
				Drag:           drag,
				CenterPan:      le.CenterPan(len(items), zoom, width),
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), r)
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"", "Left", "Right", "Width"})
			tw.AppendRow(table.Row{"content", r.Content.Left, r.Content.Right, r.Content.Width()})
			tw.AppendRow(table.Row{"pan", r.Drag.Left, r.Drag.Right, r.Drag.Width()})
			tw.AppendFooter(table.Row{"center", r.CenterPan, "", fmt.Sprintf("container %g", width)})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "zoom factor")
	cmd.Flags().Float64Var(&width, "width", 0, "container width in layout pixels (default: terminal width)")
	return cmd
}

func focusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus <initiative> [event]",
		Short: "Show focus, connection and dim flags with an event focused",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args[:1], false)
			if err != nil {
				return err
			}
			var eventID string
			if len(args) > 1 {
				eventID = args[1]
			}
			flags, err := a.engine.FocusFlags(id, eventID)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), flags)
			}
			items, err := a.engine.Items(id)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"ID", "Title", "Focused", "Connected", "Dimmed"})
			for _, it := range items {
				f := flags[it.Event.ID]
				tw.AppendRow(table.Row{it.Event.ID, it.Event.Title, mark(f.IsFocused), mark(f.IsConnected), mark(f.IsDimmed)})
			}
			tw.Render()
			return nil
		},
	}
}

func mark(b bool) string {
	if b {
		return "●"
	}
	return ""
}

// edgeReport is one connection with its curve.
type edgeReport struct {
	FromID string        `json:"fromId"`
	ToID   string        `json:"toId"`
	Curve  layout.Bezier `json:"curve"`
}

func edgesCmd() *cobra.Command {
	var (
		eventID string
		zoom    float64
	)
	cmd := &cobra.Command{
		Use:   "edges [initiative]",
		Short: "List the connection lines to draw",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			id, err := a.initiative(args, true)
			if err != nil {
				return err
			}
			edges, err := a.engine.ConnectionEdges(id, a.mode, eventID)
			if err != nil {
				return err
			}
			pos, err := a.engine.ContinuousPositions(id, zoom)
			if err != nil {
				return err
			}
			le := a.engine.Layout()
			out := make([]edgeReport, 0, len(edges))
			for _, e := range edges {
				out = append(out, edgeReport{
					FromID: e.FromID,
					ToID:   e.ToID,
					Curve:  le.Curve(pos[e.FromID], pos[e.ToID], 0),
				})
			}
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), out)
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"From", "To", "Apex height", "Path"})
			for _, r := range out {
				tw.AppendRow(table.Row{r.FromID, r.ToID, fmt.Sprintf("%.1f", -r.Curve.Apex().Y), r.Curve.SVGPath()})
			}
			tw.AppendFooter(table.Row{"mode", a.mode, "", fmt.Sprintf("%d edges", len(out))})
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&eventID, "event", "", "focused event id")
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "zoom factor used for curve geometry")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report timestamps and links the timeline silently works around",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var c diag.Collector
			a, err := openApp(c.Hook())
			if err != nil {
				return err
			}
			// Bucketing resolves every timestamp against now, surfacing the rest.
			for _, in := range a.engine.Initiatives() {
				if _, err := a.engine.WeekBuckets(in.ID, a.now()); err != nil {
					return err
				}
			}
			found := dedupe(c.All())
			if viper.GetBool("json") {
				return printJSON(cmd.OutOrStdout(), found)
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No problems found.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"Kind", "Initiative", "Event", "Raw", "Detail"})
			for _, d := range found {
				tw.AppendRow(table.Row{d.Kind, d.InitiativeID, d.EventID, d.Raw, d.Detail})
			}
			tw.Render()
			return nil
		},
	}
}

// dedupe drops repeats of the same diagnostic, keeping first-seen order.
func dedupe(ds []diag.Diagnostic) []diag.Diagnostic {
	seen := make(map[diag.Diagnostic]bool, len(ds))
	out := make([]diag.Diagnostic, 0, len(ds))
	for _, d := range ds {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
