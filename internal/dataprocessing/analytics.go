package dataprocessing

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"sheetlens/pkg/contracts/domain"
)

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max for every numeric column. Missing cells are excluded. Quartiles
// interpolate linearly between order statistics.
func Describe(ds *domain.Dataset) []domain.ColumnSummary {
	var out []domain.ColumnSummary
	for idx, col := range ds.Columns {
		if col.Type != domain.ColumnNumber {
			continue
		}
		vals := numericValues(ds, idx)
		s := domain.ColumnSummary{Column: col.Name, Count: len(vals)}
		if len(vals) > 0 {
			sorted := make([]float64, len(vals))
			copy(sorted, vals)
			sort.Float64s(sorted)

			s.Mean = ptr(stat.Mean(vals, nil))
			s.Min = ptr(sorted[0])
			s.Q25 = ptr(quantile(sorted, 0.25))
			s.Median = ptr(quantile(sorted, 0.5))
			s.Q75 = ptr(quantile(sorted, 0.75))
			s.Max = ptr(sorted[len(sorted)-1])
		}
		if len(vals) > 1 {
			s.Std = ptr(stat.StdDev(vals, nil))
		}
		out = append(out, s)
	}
	return out
}

// Correlate computes pairwise Pearson coefficients between numeric
// columns, using for each pair only the rows where both are present. It
// reports false when there are fewer than two numeric columns.
func Correlate(ds *domain.Dataset) (*domain.CorrelationMatrix, bool) {
	var idxs []int
	for i, c := range ds.Columns {
		if c.Type == domain.ColumnNumber {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) < 2 {
		return nil, false
	}

	n := len(idxs)
	m := &domain.CorrelationMatrix{
		Columns: make([]string, n),
		Values:  make([][]*float64, n),
	}
	for i := range m.Values {
		m.Columns[i] = ds.Columns[idxs[i]].Name
		m.Values[i] = make([]*float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := pearson(ds, idxs[i], idxs[j])
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m, true
}

// SelectSeries pairs the date column with a numeric column for charting.
// An empty name selects the first numeric column.
func SelectSeries(ds *domain.Dataset, dateCol, name string) (*domain.ChartSeries, error) {
	numeric := ds.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrEmptyNumericSet
	}
	if name == "" {
		name = numeric[0]
	}
	vi := ds.ColumnIndex(name)
	if vi < 0 || ds.Columns[vi].Type != domain.ColumnNumber {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeries, name)
	}
	di := ds.ColumnIndex(dateCol)
	if di < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, dateCol)
	}

	series := &domain.ChartSeries{DateColumn: dateCol, Column: name, Points: []domain.SeriesPoint{}}
	for _, row := range ds.Rows {
		d, v := row[di], row[vi]
		if !d.IsDate() || !v.IsNumber() {
			continue
		}
		series.Points = append(series.Points, domain.SeriesPoint{Date: d.Time, Value: v.Num})
	}
	return series, nil
}

func pearson(ds *domain.Dataset, a, b int) *float64 {
	var xs, ys []float64
	for _, row := range ds.Rows {
		x, y := row[a], row[b]
		if x.IsNumber() && y.IsNumber() {
			xs = append(xs, x.Num)
			ys = append(ys, y.Num)
		}
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return nil
	}
	if a == b {
		return ptr(1)
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return nil
	}
	return ptr(math.Max(-1, math.Min(1, r)))
}

// quantile interpolates linearly at position p*(n-1) of sorted.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

func numericValues(ds *domain.Dataset, idx int) []float64 {
	vals := make([]float64, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if v := row[idx]; v.IsNumber() && !math.IsNaN(v.Num) {
			vals = append(vals, v.Num)
		}
	}
	return vals
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func ptr(f float64) *float64 { return &f }
