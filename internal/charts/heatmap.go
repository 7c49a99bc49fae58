package charts

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sheetlens/pkg/contracts/domain"
)

const (
	heatmapTitle     = "Correlation Heatmap"
	heatmapMargin    = 16
	heatmapTitleBand = 44
	heatmapFontSize  = 10.0
	heatmapMaxLabel  = 18
)

var undefinedCell = drawing.ColorFromHex("bdbdbd")

// Heatmap draws the correlation matrix as an annotated grid on a diverging
// scale from -1 (blue) to 1 (red). Undefined coefficients are gray.
func Heatmap(w io.Writer, m *domain.CorrelationMatrix, opts Options) error {
	if m == nil || len(m.Columns) == 0 {
		return ErrNoCorrelation
	}
	opts = opts.withDefaults()

	r, err := opts.Format.provider()(opts.Width, opts.Height)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("loading font: %w", err)
	}
	r.SetFont(font)

	fillBox(r, chart.Box{Top: 0, Left: 0, Right: opts.Width, Bottom: opts.Height}, drawing.ColorWhite)

	r.SetFontColor(drawing.ColorBlack)
	r.SetFontSize(14)
	tb := r.MeasureText(heatmapTitle)
	r.Text(heatmapTitle, (opts.Width-tb.Width())/2, heatmapTitleBand-16)

	r.SetFontSize(heatmapFontSize)
	labels := make([]string, len(m.Columns))
	labelWidth, labelHeight := 0, 0
	for i, c := range m.Columns {
		labels[i] = shorten(c, heatmapMaxLabel)
		b := r.MeasureText(labels[i])
		labelWidth = max(labelWidth, b.Width())
		labelHeight = max(labelHeight, b.Height())
	}

	n := len(m.Columns)
	left := heatmapMargin + labelWidth + 8
	top := heatmapTitleBand
	availW := opts.Width - left - heatmapMargin
	availH := opts.Height - top - heatmapMargin - labelHeight - 8
	cell := min(availW, availH) / n
	if cell < 1 {
		return fmt.Errorf("heatmap of %d columns does not fit in %dx%d", n, opts.Width, opts.Height)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			box := chart.Box{
				Top:    top + i*cell,
				Left:   left + j*cell,
				Right:  left + (j+1)*cell,
				Bottom: top + (i+1)*cell,
			}
			bg := undefinedCell
			text := "n/a"
			if v, ok := m.At(i, j); ok {
				bg = coolwarm.scaled(v, -1, 1)
				text = fmt.Sprintf("%.2f", v)
			}
			fillBox(r, box, bg)

			tb := r.MeasureText(text)
			if tb.Width() < cell-4 && tb.Height() < cell-4 {
				r.SetFontColor(textColorOn(bg))
				r.Text(text, box.Left+(cell-tb.Width())/2, box.Top+(cell+tb.Height())/2)
			}
		}
	}

	r.SetFontColor(drawing.ColorBlack)
	for i, label := range labels {
		b := r.MeasureText(label)
		// row labels, right aligned against the grid
		r.Text(label, left-8-b.Width(), top+i*cell+(cell+b.Height())/2)
		// column labels, centered under each column when they fit
		if b.Width() <= cell {
			r.Text(label, left+i*cell+(cell-b.Width())/2, top+n*cell+8+b.Height())
		}
	}

	return r.Save(w)
}

func fillBox(r chart.Renderer, b chart.Box, c drawing.Color) {
	r.SetFillColor(c)
	r.SetStrokeColor(c)
	r.SetStrokeWidth(0)
	r.MoveTo(b.Left, b.Top)
	r.LineTo(b.Right, b.Top)
	r.LineTo(b.Right, b.Bottom)
	r.LineTo(b.Left, b.Bottom)
	r.Close()
	r.Fill()
}

func shorten(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
