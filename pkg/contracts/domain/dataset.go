package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ColumnType is the inferred type of a dataset column.
type ColumnType string

const (
	ColumnNumber ColumnType = "number"
	ColumnText   ColumnType = "text"
	ColumnDate   ColumnType = "date"
	ColumnBool   ColumnType = "bool"
)

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
	KindDate
	KindBool
)

// Value is a single cell. Missing cells are explicit rather than zero values.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
	Time time.Time
	Bool bool
}

func Missing() Value            { return Value{Kind: KindMissing} }
func Number(f float64) Value    { return Value{Kind: KindNumber, Num: f} }
func Text(s string) Value       { return Value{Kind: KindText, Text: s} }
func Date(t time.Time) Value    { return Value{Kind: KindDate, Time: t} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func (v Value) IsMissing() bool { return v.Kind == KindMissing }
func (v Value) IsNumber() bool  { return v.Kind == KindNumber }
func (v Value) IsDate() bool    { return v.Kind == KindDate }

// Interface returns the Go value a JSON encoder should see. NaN and
// infinities have no JSON form and are reported as nil.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return nil
		}
		return v.Num
	case KindText:
		return v.Text
	case KindDate:
		return FormatTimestamp(v.Time)
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FormatTimestamp renders dates at midnight as YYYY-MM-DD and everything
// else with a time of day.
func FormatTimestamp(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(TimestampLayout)
}

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Column describes one dataset column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Dataset is an ordered, typed table. Each pipeline stage produces a new
// Dataset; none of them mutate their input.
type Dataset struct {
	Columns []Column  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// NewDataset builds a dataset, checking every row matches the column count.
func NewDataset(columns []Column, rows [][]Value) (*Dataset, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
	}
	if rows == nil {
		rows = [][]Value{}
	}
	return &Dataset{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NumericColumns lists number-typed columns in column order.
func (d *Dataset) NumericColumns() []string {
	var names []string
	for _, c := range d.Columns {
		if c.Type == ColumnNumber {
			names = append(names, c.Name)
		}
	}
	return names
}

// WithRows returns a dataset with the same columns and the given rows.
func (d *Dataset) WithRows(rows [][]Value) *Dataset {
	cols := make([]Column, len(d.Columns))
	copy(cols, d.Columns)
	if rows == nil {
		rows = [][]Value{}
	}
	return &Dataset{Columns: cols, Rows: rows}
}

// Head returns a table view of at most n rows. n <= 0 means all rows.
func (d *Dataset) Head(n int) *Table {
	rows := d.Rows
	truncated := false
	if n > 0 && len(rows) > n {
		rows = rows[:n]
		truncated = true
	}
	return &Table{
		Columns:   d.Columns,
		Rows:      rows,
		TotalRows: len(d.Rows),
		Truncated: truncated,
	}
}

// Table is the presentation form of a dataset, possibly truncated.
type Table struct {
	Columns   []Column  `json:"columns"`
	Rows      [][]Value `json:"rows"`
	TotalRows int       `json:"total_rows"`
	Truncated bool      `json:"truncated"`
}
