package dataprocessing

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"sheetlens/pkg/contracts/domain"
)

// Resolution is the outcome of choosing and coercing the date column.
type Resolution struct {
	Column       string
	AutoDetected bool
	// Dataset has the date column typed as dates, rows with unparseable
	// dates removed, and rows sorted ascending by date.
	Dataset *domain.Dataset
	Dropped int
}

// ClassifyColumns classifies every column of ds as a date source.
func ClassifyColumns(ds *domain.Dataset) []domain.DateCandidate {
	out := make([]domain.DateCandidate, len(ds.Columns))
	for i := range ds.Columns {
		out[i] = ClassifyColumn(ds, i)
	}
	return out
}

// ClassifyColumn reports whether column idx is typed as dates, holds only
// text that parses as dates, or neither.
func ClassifyColumn(ds *domain.Dataset, idx int) domain.DateCandidate {
	col := ds.Columns[idx]
	cand := domain.DateCandidate{Column: col.Name, Kind: domain.CandidateUnparseable}

	switch col.Type {
	case domain.ColumnDate:
		cand.Kind = domain.CandidateTyped
		for _, row := range ds.Rows {
			if row[idx].IsDate() {
				cand.Parsed++
			}
		}
	case domain.ColumnText:
		for _, row := range ds.Rows {
			v := row[idx]
			if v.IsMissing() {
				continue
			}
			if _, ok := parseDate(v); ok {
				cand.Parsed++
			} else {
				cand.Failed++
			}
		}
		if cand.Parsed > 0 && cand.Failed == 0 {
			cand.Kind = domain.CandidateParseable
		}
	}
	return cand
}

// DetectDateColumn returns the first column already typed as dates.
func DetectDateColumn(ds *domain.Dataset) (string, bool) {
	for _, c := range ds.Columns {
		if c.Type == domain.ColumnDate {
			return c.Name, true
		}
	}
	return "", false
}

// ResolveDateColumn picks the date column and coerces it. A column typed as
// dates always wins and requested is then ignored. Otherwise requested
// names the column to coerce; values that cannot be read as dates become
// missing and their rows are dropped. The remaining rows are sorted
// ascending by date with ties kept in input order.
func ResolveDateColumn(ds *domain.Dataset, requested string) (*Resolution, error) {
	name, auto := DetectDateColumn(ds)
	if !auto {
		requested = strings.TrimSpace(requested)
		if requested == "" {
			return nil, fmt.Errorf("%w: no column is typed as dates and none was chosen", ErrNoDateColumn)
		}
		if ds.ColumnIndex(requested) < 0 {
			return nil, fmt.Errorf("%w: %w: %q", ErrNoDateColumn, ErrColumnNotFound, requested)
		}
		name = requested
	}
	idx := ds.ColumnIndex(name)

	columns := make([]domain.Column, len(ds.Columns))
	copy(columns, ds.Columns)
	columns[idx].Type = domain.ColumnDate

	rows := make([][]domain.Value, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		t, ok := parseDate(row[idx])
		if !ok {
			continue
		}
		out := make([]domain.Value, len(row))
		copy(out, row)
		out[idx] = domain.Date(t)
		rows = append(rows, out)
	}

	dropped := len(ds.Rows) - len(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %w: column %q", ErrNoDateColumn, ErrNoValidDates, name)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][idx].Time.Before(rows[j][idx].Time)
	})

	if dropped > 0 {
		slog.Debug("Dropped rows without a valid date",
			slog.String("column", name),
			slog.Int("dropped", dropped))
	}

	resolved, err := domain.NewDataset(columns, rows)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Column:       name,
		AutoDetected: auto,
		Dataset:      resolved,
		Dropped:      dropped,
	}, nil
}

// DateBounds returns the earliest and latest calendar dates in column col.
func DateBounds(ds *domain.Dataset, col string) (domain.DateRange, error) {
	idx := ds.ColumnIndex(col)
	if idx < 0 {
		return domain.DateRange{}, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	var lo, hi time.Time
	found := false
	for _, row := range ds.Rows {
		v := row[idx]
		if !v.IsDate() {
			continue
		}
		if !found || v.Time.Before(lo) {
			lo = v.Time
		}
		if !found || v.Time.After(hi) {
			hi = v.Time
		}
		found = true
	}
	if !found {
		return domain.DateRange{}, fmt.Errorf("%w: column %q", ErrNoValidDates, col)
	}
	return domain.DateRange{Start: domain.TruncateDay(lo), End: domain.TruncateDay(hi)}, nil
}

// parseDate reads a cell as a timestamp. Numbers are Excel serial dates.
func parseDate(v domain.Value) (time.Time, bool) {
	switch v.Kind {
	case domain.KindDate:
		return v.Time, true
	case domain.KindNumber:
		t, err := excelize.ExcelDateToTime(v.Num, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case domain.KindText:
		s := strings.TrimSpace(v.Text)
		if s == "" {
			return time.Time{}, false
		}
		t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
