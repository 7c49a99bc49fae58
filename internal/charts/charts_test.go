package charts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/shared/testutil"
	"sheetlens/pkg/contracts/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func series(values ...float64) *domain.ChartSeries {
	s := &domain.ChartSeries{DateColumn: "Date", Column: "Sales"}
	for i, v := range values {
		s.Points = append(s.Points, domain.SeriesPoint{Date: testutil.Day(2024, 1, 1+i), Value: v})
	}
	return s
}

func ptr(f float64) *float64 { return &f }

func TestRenderSeriesCharts(t *testing.T) {
	report := &domain.Report{Series: series(3, 1, 4, 1, 5, 9, 2, 6)}

	for _, kind := range []Kind{KindLine, KindBar, KindScatter} {
		for _, format := range []Format{PNG, SVG} {
			t.Run(string(kind)+"/"+string(format), func(t *testing.T) {
				var buf bytes.Buffer
				err := Render(&buf, kind, report, Options{Width: 640, Height: 360, Format: format})
				require.NoError(t, err)

				if format == PNG {
					assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
				} else {
					assert.Contains(t, buf.String(), "<svg")
				}
			})
		}
	}
}

func TestSeriesChartsHandleDegenerateInput(t *testing.T) {
	tests := []struct {
		name   string
		series *domain.ChartSeries
	}{
		{name: "single point", series: series(42)},
		{name: "constant values", series: series(7, 7, 7)},
		{name: "all zero", series: series(0, 0)},
		{name: "negative values", series: series(-5, -1, -3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, kind := range []Kind{KindLine, KindBar, KindScatter} {
				var buf bytes.Buffer
				err := Render(&buf, kind, &domain.Report{Series: tt.series}, Options{})
				require.NoError(t, err, kind)
				assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), kind)
			}
		})
	}
}

func TestRenderWithoutData(t *testing.T) {
	var buf bytes.Buffer

	assert.ErrorIs(t, Render(&buf, KindLine, &domain.Report{}, Options{}), ErrNoSeries)
	assert.ErrorIs(t, Render(&buf, KindBar, &domain.Report{Series: series()}, Options{}), ErrNoSeries)
	assert.ErrorIs(t, Render(&buf, KindHeatmap, &domain.Report{}, Options{}), ErrNoCorrelation)
	assert.ErrorIs(t, Render(&buf, Kind("pie"), &domain.Report{}, Options{}), ErrUnknownKind)
}

func TestHeatmap(t *testing.T) {
	m := &domain.CorrelationMatrix{
		Columns: []string{"Sales", "Cost", "A rather long column name indeed"},
		Values: [][]*float64{
			{ptr(1), ptr(0.8), nil},
			{ptr(0.8), ptr(1), ptr(-0.25)},
			{nil, ptr(-0.25), ptr(1)},
		},
	}

	var png bytes.Buffer
	require.NoError(t, Heatmap(&png, m, Options{Width: 600, Height: 600}))
	assert.True(t, bytes.HasPrefix(png.Bytes(), pngMagic))

	var svg bytes.Buffer
	require.NoError(t, Heatmap(&svg, m, Options{Width: 600, Height: 600, Format: SVG}))
	assert.Contains(t, svg.String(), "<svg")
	assert.Contains(t, svg.String(), "0.80")
	assert.Contains(t, svg.String(), "n/a")
}

func TestParseKindAndFormat(t *testing.T) {
	k, err := ParseKind(" Heatmap ")
	require.NoError(t, err)
	assert.Equal(t, KindHeatmap, k)

	_, err = ParseKind("pie")
	assert.ErrorIs(t, err, ErrUnknownKind)

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, PNG, f)
	assert.Equal(t, "image/png", f.ContentType())

	f, err = ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "scatter_chart.svg", FileName(KindScatter, SVG))
}

func TestColormap(t *testing.T) {
	assert.Equal(t, coolwarm[0], coolwarm.at(0))
	assert.Equal(t, coolwarm[len(coolwarm)-1], coolwarm.at(1))
	assert.Equal(t, coolwarm[0], coolwarm.at(-3))
	assert.Equal(t, viridis.at(0.5), viridis.scaled(5, 5, 5))
}
