// Package export writes static snapshots of a timeline view: SVG and PNG
// pictures with week bands, focus/dim state and connection curves, or the
// view model itself as JSON.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	json "github.com/goccy/go-json"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/swimlane/pkg/focus"
	"github.com/vanderheijden86/swimlane/pkg/layout"
	"github.com/vanderheijden86/swimlane/pkg/metrics"
	"github.com/vanderheijden86/swimlane/pkg/model"
	"github.com/vanderheijden86/swimlane/pkg/timeline"
)

// Supported formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path   string         // Output path; format inferred from extension when Format empty
	Format string         // "svg", "png" or "json" (case-insensitive)
	Title  string         // Optional title; defaults to the initiative name
	View   timeline.View  // View to render
	Layout *layout.Engine // Geometry used for curves; defaults to layout.DefaultConfig
}

// ResolveFormat returns the normalised format for opts, inferring it from the
// path extension when no format is given. The returned path gets an .svg
// extension when it had none.
func ResolveFormat(format, path string) (string, string, error) {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			f = FormatSVG
		case ".png":
			f = FormatPNG
		case ".json":
			f = FormatJSON
		default:
			f = FormatSVG
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	switch f {
	case FormatSVG, FormatPNG, FormatJSON:
		return f, path, nil
	}
	return "", path, fmt.Errorf("unsupported format %q (want svg, png or json)", f)
}

// SaveSnapshot renders opts.View to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	format, path, err := ResolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	opts.Path = path

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	if format == FormatPNG {
		return renderPNG(opts.Path, buildScene(opts))
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	if format == FormatJSON {
		return WriteJSON(file, opts.View)
	}
	return renderSVG(file, buildScene(opts))
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v timeline.View) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteSVG renders opts.View as SVG to w.
func WriteSVG(w io.Writer, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()
	return renderSVG(w, buildScene(opts))
}

// --- scene computation -----------------------------------------------------

const (
	padding      = 36.0
	headerHeight = 120.0
	curveSpace   = 180.0
	cardHeight   = 90.0
	bandLabelH   = 22.0
	footer       = 40.0
)

type card struct {
	ID          string
	Title       string
	When        string
	Type        model.EventType
	Criticality model.Criticality
	X, Y, W, H  float64
	Flags       focus.Flags
}

type band struct {
	Label   string
	X, W    float64
	Current bool
}

type curve struct {
	From, To string
	Path     layout.Bezier
	Active   bool
}

type scene struct {
	Width, Height int
	Title         string
	Subtitle      string
	Stats         string
	Baseline      float64
	Cards         []card
	Bands         []band
	Curves        []curve
}

func buildScene(opts SnapshotOptions) scene {
	eng := opts.Layout
	if eng == nil {
		eng = layout.New(layout.DefaultConfig())
	}
	cfg := eng.Config()
	v := opts.View

	// Shift content so the first card sits at the left padding.
	shift := padding - v.Content.Left
	if len(v.Items) == 0 {
		shift = 0
	}
	baseline := headerHeight + bandLabelH + curveSpace

	s := scene{
		Title:    opts.Title,
		Baseline: baseline,
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = v.Initiative.Name
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = "Timeline Snapshot"
	}
	s.Subtitle = fmt.Sprintf("initiative: %s  status: %s  owner: %s", v.Initiative.ID, v.Initiative.Status, orNA(v.Initiative.Owner))
	focusLabel := "none"
	if v.FocusedEventID != "" {
		focusLabel = v.FocusedEventID
	}
	s.Stats = fmt.Sprintf("events: %d  connections: %d  zoom: %.2f  focus: %s  mode: %s",
		len(v.Items), len(v.Edges), v.Zoom, focusLabel, v.Mode)

	xByID := make(map[string]float64, len(v.Items))
	for _, it := range v.Items {
		x := it.X + shift
		xByID[it.Event.ID] = x
		s.Cards = append(s.Cards, card{
			ID:          it.Event.ID,
			Title:       truncate(it.Event.Title, 34),
			When:        it.Time.Format("Mon Jan 2 15:04"),
			Type:        it.Event.Type,
			Criticality: it.Event.Criticality,
			X:           x,
			Y:           baseline,
			W:           cfg.ItemWidth,
			H:           cardHeight,
			Flags:       it.Flags,
		})
	}

	for _, b := range v.Weeks {
		if len(b.Events) == 0 {
			continue
		}
		lo, hi := 0.0, 0.0
		first := true
		for _, ev := range b.Events {
			x, ok := xByID[ev.ID]
			if !ok {
				continue
			}
			if first || x < lo {
				lo = x
			}
			if first || x > hi {
				hi = x
			}
			first = false
		}
		if first {
			continue
		}
		s.Bands = append(s.Bands, band{
			Label:   b.Week.Label,
			X:       lo - 8,
			W:       hi - lo + cfg.ItemWidth + 16,
			Current: b.Week.IsCurrentWeek,
		})
	}
	sort.SliceStable(s.Bands, func(i, j int) bool { return s.Bands[i].X < s.Bands[j].X })

	for _, e := range v.Edges {
		fx, okF := xByID[e.FromID]
		tx, okT := xByID[e.ToID]
		if !okF || !okT {
			continue
		}
		s.Curves = append(s.Curves, curve{
			From:   e.FromID,
			To:     e.ToID,
			Path:   eng.Curve(fx, tx, baseline),
			Active: v.FocusedEventID != "" && (e.FromID == v.FocusedEventID || e.ToID == v.FocusedEventID),
		})
	}

	right := padding
	if n := len(s.Cards); n > 0 {
		right = s.Cards[n-1].X + s.Cards[n-1].W
	}
	s.Width = int(right + padding)
	if s.Width < 640 {
		s.Width = 640
	}
	s.Height = int(baseline + cardHeight + footer)
	return s
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorBand      = color.RGBA{0xee, 0xf2, 0xf7, 0xff}
	colorBandNow   = color.RGBA{0xdb, 0xea, 0xfe, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorFocus     = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorConnected = color.RGBA{0x7c, 0x3a, 0xed, 0xff}
	colorEdge      = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorAxis      = color.RGBA{0xcb, 0xd5, 0xe1, 0xff}
)

const dimOpacity = 0.35

func typeColor(t model.EventType) color.RGBA {
	switch t {
	case model.EventMeeting:
		return color.RGBA{0xe0, 0xf2, 0xfe, 0xff}
	case model.EventDecision:
		return color.RGBA{0xfe, 0xf3, 0xc7, 0xff}
	case model.EventCommitment:
		return color.RGBA{0xdc, 0xfc, 0xe7, 0xff}
	case model.EventDocument:
		return color.RGBA{0xf1, 0xf5, 0xf9, 0xff}
	case model.EventAlert:
		return color.RGBA{0xfe, 0xe2, 0xe2, 0xff}
	case model.EventMilestone:
		return color.RGBA{0xed, 0xe9, 0xfe, 0xff}
	default:
		return color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
}

func criticalityColor(c model.Criticality) (color.RGBA, bool) {
	switch c {
	case model.CriticalityCritical:
		return color.RGBA{0xdc, 0x26, 0x26, 0xff}, true
	case model.CriticalityUrgent:
		return color.RGBA{0xea, 0x58, 0x0c, 0xff}, true
	case model.CriticalityWarning:
		return color.RGBA{0xca, 0x8a, 0x04, 0xff}, true
	case model.CriticalityInfo:
		return color.RGBA{0x02, 0x84, 0xc7, 0xff}, true
	}
	return color.RGBA{}, false
}

func cardBorder(f focus.Flags) (color.RGBA, float64) {
	switch {
	case f.IsFocused:
		return colorFocus, 3
	case f.IsConnected:
		return colorConnected, 2
	default:
		return colorStroke, 1.2
	}
}

func renderSVG(w io.Writer, s scene) error {
	canvas := svg.New(w)
	canvas.Start(s.Width, s.Height)
	canvas.Rect(0, 0, s.Width, s.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, s.Width-32, int(headerHeight-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, s.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 68, s.Subtitle, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	canvas.Text(32, 90, s.Stats, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	bandTop := int(headerHeight)
	bandH := s.Height - bandTop - int(footer/2)
	for _, b := range s.Bands {
		fill := colorBand
		if b.Current {
			fill = colorBandNow
		}
		canvas.Rect(int(b.X), bandTop, int(b.W), bandH, fmt.Sprintf("fill:%s", css(fill)))
		canvas.Text(int(b.X)+8, bandTop+16, b.Label, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;font-weight:bold", css(colorSubtle)))
	}

	axisY := int(s.Baseline + cardHeight/2)
	canvas.Line(int(padding/2), axisY, s.Width-int(padding/2), axisY, fmt.Sprintf("stroke:%s;stroke-width:1", css(colorAxis)))

	for _, c := range s.Curves {
		stroke, width := colorEdge, 1.5
		if c.Active {
			stroke, width = colorFocus, 2.5
		}
		canvas.Path(c.Path.SVGPath(), fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.1f", css(stroke), width))
		end := c.Path.End
		canvas.Circle(int(end.X), int(end.Y), 4, fmt.Sprintf("fill:%s", css(stroke)))
	}

	for _, c := range s.Cards {
		if c.Flags.IsDimmed {
			canvas.Gstyle(fmt.Sprintf("opacity:%.2f", dimOpacity))
		}
		border, bw := cardBorder(c.Flags)
		x, y := int(c.X), int(c.Y)
		canvas.Roundrect(x, y, int(c.W), int(c.H), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(typeColor(c.Type)), css(border), bw))
		if cc, ok := criticalityColor(c.Criticality); ok {
			canvas.Rect(x, y+8, 4, int(c.H)-16, fmt.Sprintf("fill:%s", css(cc)))
		}
		canvas.Text(x+12, y+22, c.ID, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+12, y+42, c.Title, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		canvas.Text(x+12, y+62, c.When, fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Text(x+12, y+78, string(c.Type), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		if c.Flags.IsDimmed {
			canvas.Gend()
		}
	}

	canvas.End()
	return nil
}

func renderPNG(path string, s scene) error {
	dc := gg.NewContext(s.Width, s.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(s.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(s.Subtitle, 32, 68, 0, 0.5)
	dc.DrawStringAnchored(s.Stats, 32, 90, 0, 0.5)

	bandH := float64(s.Height) - headerHeight - footer/2
	for _, b := range s.Bands {
		fill := colorBand
		if b.Current {
			fill = colorBandNow
		}
		dc.SetColor(fill)
		dc.DrawRectangle(b.X, headerHeight, b.W, bandH)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(b.Label, b.X+8, headerHeight+12, 0, 0.5)
	}

	axisY := s.Baseline + cardHeight/2
	dc.SetColor(colorAxis)
	dc.SetLineWidth(1)
	dc.DrawLine(padding/2, axisY, float64(s.Width)-padding/2, axisY)
	dc.Stroke()

	for _, c := range s.Curves {
		stroke, width := colorEdge, 1.5
		if c.Active {
			stroke, width = colorFocus, 2.5
		}
		dc.SetColor(stroke)
		dc.SetLineWidth(width)
		dc.NewSubPath()
		dc.MoveTo(c.Path.Start.X, c.Path.Start.Y)
		dc.QuadraticTo(c.Path.Control.X, c.Path.Control.Y, c.Path.End.X, c.Path.End.Y)
		dc.Stroke()
		dc.DrawCircle(c.Path.End.X, c.Path.End.Y, 4)
		dc.Fill()
	}

	for _, c := range s.Cards {
		drawCard(dc, c)
	}

	return dc.SavePNG(path)
}

func drawCard(dc *gg.Context, c card) {
	alpha := 1.0
	if c.Flags.IsDimmed {
		alpha = dimOpacity
	}
	border, bw := cardBorder(c.Flags)

	dc.SetColor(fade(typeColor(c.Type), alpha))
	dc.DrawRoundedRectangle(c.X, c.Y, c.W, c.H, 8)
	dc.Fill()
	dc.SetColor(fade(border, alpha))
	dc.SetLineWidth(bw)
	dc.DrawRoundedRectangle(c.X, c.Y, c.W, c.H, 8)
	dc.Stroke()

	if cc, ok := criticalityColor(c.Criticality); ok {
		dc.SetColor(fade(cc, alpha))
		dc.DrawRectangle(c.X, c.Y+8, 4, c.H-16)
		dc.Fill()
	}

	dc.SetColor(fade(colorText, alpha))
	dc.DrawStringAnchored(c.ID, c.X+12, c.Y+18, 0, 0.5)
	dc.DrawStringAnchored(c.Title, c.X+12, c.Y+38, 0, 0.5)
	dc.SetColor(fade(colorSubtle, alpha))
	dc.DrawStringAnchored(c.When, c.X+12, c.Y+58, 0, 0.5)
	dc.DrawStringAnchored(string(c.Type), c.X+12, c.Y+76, 0, 0.5)
}

// --- helpers ---------------------------------------------------------------

func fade(c color.RGBA, alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(float64(c.A) * alpha)}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
