package domain

import (
	"encoding/json"
	"time"
)

// DateRange is an inclusive calendar range. Both ends are midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := TruncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.Start.Format(DateLayout), r.End.Format(DateLayout)})
}

// TruncateDay drops the time of day, keeping the calendar date of t in
// its own location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CandidateKind classifies how a column relates to dates.
type CandidateKind string

const (
	CandidateTyped       CandidateKind = "typed"
	CandidateParseable   CandidateKind = "parseable"
	CandidateUnparseable CandidateKind = "unparseable"
)

// DateCandidate is the classification of one column as a date source.
type DateCandidate struct {
	Column string        `json:"column"`
	Kind   CandidateKind `json:"kind"`
	Parsed int           `json:"parsed"`
	Failed int           `json:"failed"`
}

// DateColumnInfo records which column became the date column and how.
type DateColumnInfo struct {
	Name         string `json:"name"`
	AutoDetected bool   `json:"auto_detected"`
	DroppedRows  int    `json:"dropped_rows"`
}

// ColumnSummary holds descriptive statistics of one numeric column.
// Undefined statistics are nil.
type ColumnSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Median *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// CorrelationMatrix is a symmetric Pearson matrix over numeric columns.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// At returns the coefficient for columns i and j and whether it is defined.
func (m *CorrelationMatrix) At(i, j int) (float64, bool) {
	v := m.Values[i][j]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SeriesPoint is one observation of the charted series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}{FormatTimestamp(p.Date), p.Value})
}

// ChartSeries is the numeric column plotted against the date column.
type ChartSeries struct {
	DateColumn string        `json:"date_column"`
	Column     string        `json:"column"`
	Points     []SeriesPoint `json:"points"`
}

// Dates returns the x values of the series.
func (s *ChartSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Values returns the y values of the series.
func (s *ChartSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Notice is a non-fatal condition reported alongside a result.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Report is the result of one pipeline run. Sections are filled in stage
// order, so a failed run still carries everything computed before the
// failure.
type Report struct {
	Sheet       string             `json:"sheet,omitempty"`
	Sheets      []string           `json:"sheets,omitempty"`
	Data        *Table             `json:"data,omitempty"`
	Candidates  []DateCandidate    `json:"date_candidates,omitempty"`
	DateColumn  *DateColumnInfo    `json:"date_column,omitempty"`
	Bounds      *DateRange         `json:"bounds,omitempty"`
	Range       *DateRange         `json:"range,omitempty"`
	Filtered    *Table             `json:"filtered,omitempty"`
	Statistics  []ColumnSummary    `json:"statistics,omitempty"`
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
	Series      *ChartSeries       `json:"series,omitempty"`
	Notices     []Notice           `json:"notices,omitempty"`

	// Full datasets backing the tables above.
	Raw          *Dataset `json:"-"`
	FilteredData *Dataset `json:"-"`
}

// HasNotice reports whether a notice with the given code was raised.
func (r *Report) HasNotice(code string) bool {
	for _, n := range r.Notices {
		if n.Code == code {
			return true
		}
	}
	return false
}
