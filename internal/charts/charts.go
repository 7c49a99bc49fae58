package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sheetlens/pkg/contracts/domain"
)

// Kind names a chart type.
type Kind string

const (
	KindLine    Kind = "line"
	KindBar     Kind = "bar"
	KindScatter Kind = "scatter"
	KindHeatmap Kind = "heatmap"
)

// Kinds lists every chart kind in display order.
var Kinds = []Kind{KindLine, KindBar, KindScatter, KindHeatmap}

// Format is an image encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 512
)

var (
	ErrUnknownKind   = errors.New("unknown chart kind")
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrNoSeries means there is no numeric series to plot.
	ErrNoSeries = errors.New("no numeric series to chart")
	// ErrNoCorrelation means the heatmap has no matrix to draw.
	ErrNoCorrelation = errors.New("correlation matrix unavailable")
)

// ParseKind validates a chart kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParseFormat validates an image format. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", PNG:
		return PNG, nil
	case SVG:
		return SVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the media type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// FileName is the download name of a rendered chart, e.g. line_chart.png.
func FileName(kind Kind, format Format) string {
	if format == "" {
		format = PNG
	}
	return fmt.Sprintf("%s_chart.%s", kind, format)
}

// Options sizes and encodes a chart. Zero values take defaults.
type Options struct {
	Width  int
	Height int
	Format Format
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Format == "" {
		o.Format = PNG
	}
	return o
}

// Render draws one chart kind from a report. Series charts need
// report.Series; the heatmap needs report.Correlation.
func Render(w io.Writer, kind Kind, report *domain.Report, opts Options) error {
	switch kind {
	case KindLine:
		return Line(w, report.Series, opts)
	case KindBar:
		return Bar(w, report.Series, opts)
	case KindScatter:
		return Scatter(w, report.Series, opts)
	case KindHeatmap:
		return Heatmap(w, report.Correlation, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Line plots the series as a line over time.
func Line(w io.Writer, s *domain.ChartSeries, opts Options) error {
	if s == nil || len(s.Points) == 0 {
		return ErrNoSeries
	}
	opts = opts.withDefaults()
	xs, ys := padded(s)

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s over time", s.Column),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis:      chart.XAxis{Name: s.DateColumn, ValueFormatter: dateFormatter, Range: timeRange(xs)},
		YAxis:      chart.YAxis{Name: s.Column, Range: valueRange(ys, false)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    s.Column,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 2,
					StrokeColor: viridis.at(0.3),
					DotWidth:    2,
					DotColor:    viridis.at(0.3),
				},
			},
		},
	}
	return ch.Render(opts.Format.provider(), w)
}

// Bar draws one bar per observation, colored by value.
func Bar(w io.Writer, s *domain.ChartSeries, opts Options) error {
	if s == nil || len(s.Points) == 0 {
		return ErrNoSeries
	}
	opts = opts.withDefaults()
	ys := s.Values()
	lo, hi := bounds(ys)

	// keep roughly 20 readable labels
	every := int(math.Ceil(float64(len(s.Points)) / 20))
	bars := make([]chart.Value, len(s.Points))
	for i, p := range s.Points {
		label := ""
		if i%every == 0 {
			label = p.Date.Format(domain.DateLayout)
		}
		color := viridis.scaled(p.Value, lo, hi)
		bars[i] = chart.Value{
			Value: p.Value,
			Label: label,
			Style: chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		}
	}

	spacing := 8
	if len(bars) > 40 {
		spacing = 1
	}
	width := (opts.Width-120)/len(bars) - spacing
	width = max(1, min(width, 60))

	bc := chart.BarChart{
		Title:      fmt.Sprintf("%s by %s", s.Column, s.DateColumn),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		BarWidth:   width,
		BarSpacing: spacing,
		YAxis:      chart.YAxis{Name: s.Column, Range: valueRange(ys, true)},
		Bars:       bars,
	}
	return bc.Render(opts.Format.provider(), w)
}

// Scatter plots unconnected points sized and colored by value.
func Scatter(w io.Writer, s *domain.ChartSeries, opts Options) error {
	if s == nil || len(s.Points) == 0 {
		return ErrNoSeries
	}
	opts = opts.withDefaults()
	xs, ys := padded(s)
	lo, hi := bounds(ys)

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s scatter", s.Column),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis:      chart.XAxis{Name: s.DateColumn, ValueFormatter: dateFormatter, Range: timeRange(xs)},
		YAxis:      chart.YAxis{Name: s.Column, Range: valueRange(ys, false)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    s.Column,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColorProvider: func(_, _ chart.Range, _ int, _, y float64) drawing.Color {
						return plasma.scaled(y, lo, hi)
					},
					DotWidthProvider: func(_, _ chart.Range, _ int, _, y float64) float64 {
						if hi <= lo {
							return 6
						}
						return 3 + 9*(y-lo)/(hi-lo)
					},
				},
			},
		},
	}
	return ch.Render(opts.Format.provider(), w)
}

// padded returns the series values, duplicating a lone point one day later
// so the x range is never zero-width.
func padded(s *domain.ChartSeries) ([]time.Time, []float64) {
	xs, ys := s.Dates(), s.Values()
	if len(xs) == 1 {
		xs = append(xs, xs[0].Add(24*time.Hour))
		ys = append(ys, ys[0])
	}
	return xs, ys
}

func timeRange(xs []time.Time) *chart.ContinuousRange {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x.Before(lo) {
			lo = x
		}
		if x.After(hi) {
			hi = x
		}
	}
	if !hi.After(lo) {
		hi = lo.Add(24 * time.Hour)
	}
	return &chart.ContinuousRange{Min: float64(chart.TimeToFloat64(lo)), Max: float64(chart.TimeToFloat64(hi))}
}

// valueRange spans the values with a little headroom. Bar ranges always
// include zero.
func valueRange(ys []float64, withZero bool) *chart.ContinuousRange {
	lo, hi := bounds(ys)
	if withZero {
		lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	}
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := (hi - lo) * 0.05
	if withZero && lo == 0 {
		return &chart.ContinuousRange{Min: 0, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func bounds(ys []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if math.IsInf(lo, 0) {
		return 0, 0
	}
	return lo, hi
}

func dateFormatter(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(domain.DateLayout)
	case float64:
		return chart.TimeFromFloat64(t).UTC().Format(domain.DateLayout)
	}
	return ""
}
