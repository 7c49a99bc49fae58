package dataprocessing

import (
	"fmt"
	"time"

	"sheetlens/pkg/contracts/domain"
)

// NewDateRange builds an inclusive range from two timestamps, keeping only
// their calendar dates.
func NewDateRange(start, end time.Time) domain.DateRange {
	return domain.DateRange{Start: domain.TruncateDay(start), End: domain.TruncateDay(end)}
}

// FilterByDateRange keeps the rows whose date in column col falls on or
// between rng.Start and rng.End. Row order is preserved.
func FilterByDateRange(ds *domain.Dataset, col string, rng domain.DateRange) (*domain.Dataset, error) {
	if !rng.Valid() {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			rng.Start.Format(domain.DateLayout), rng.End.Format(domain.DateLayout))
	}
	idx := ds.ColumnIndex(col)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}

	rows := make([][]domain.Value, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		v := row[idx]
		if v.IsDate() && rng.Contains(v.Time) {
			rows = append(rows, row)
		}
	}
	return ds.WithRows(rows), nil
}
