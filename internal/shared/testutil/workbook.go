package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet describes one worksheet written by BuildWorkbook.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// BuildWorkbook writes sheets into an in-memory xlsx file in the given
// order. time.Time cells get a date number format and nil cells are left
// empty.
func BuildWorkbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)

	for i, sh := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), sh.Name))
		} else {
			_, err := f.NewSheet(sh.Name)
			require.NoError(t, err)
		}

		for c, name := range sh.Header {
			cell, err := excelize.CoordinatesToCellName(c+1, 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sh.Name, cell, name))
		}
		for r, row := range sh.Rows {
			for c, v := range row {
				if v == nil {
					continue
				}
				cell, err := excelize.CoordinatesToCellName(c+1, r+2)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(sh.Name, cell, v))
				if _, ok := v.(time.Time); ok {
					require.NoError(t, f.SetCellStyle(sh.Name, cell, cell, dateStyle))
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// SingleSheet is BuildWorkbook for one sheet named "Data".
func SingleSheet(t testing.TB, header []string, rows ...[]any) []byte {
	t.Helper()
	return BuildWorkbook(t, Sheet{Name: "Data", Header: header, Rows: rows})
}

// Day returns midnight UTC of the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TenDayWorkbook holds 2024-01-01 through 2024-01-10 with two numeric
// columns and one text column. Sales on day d is 10*d and Cost is d+5 on
// odd days and d+2 on even days.
func TenDayWorkbook(t testing.TB) []byte {
	t.Helper()
	rows := make([][]any, 0, 10)
	for d := 1; d <= 10; d++ {
		cost := d + 5
		if d%2 == 0 {
			cost = d + 2
		}
		region := "north"
		if d%3 == 0 {
			region = "south"
		}
		rows = append(rows, []any{Day(2024, time.January, d), 10 * d, cost, region})
	}
	return SingleSheet(t, []string{"Date", "Sales", "Cost", "Region"}, rows...)
}
