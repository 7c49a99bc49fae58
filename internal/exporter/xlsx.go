package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sheetlens/pkg/contracts/domain"
)

// XLSXSheetName is the worksheet written by WriteXLSX.
const XLSXSheetName = "filtered_data"

// WriteXLSX writes ds as a single-sheet workbook. Dates keep a date number
// format so they read back as dates.
func WriteXLSX(dst io.Writer, ds *domain.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	timestampStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("failed to create timestamp style: %w", err)
	}

	sw, err := f.NewStreamWriter(XLSXSheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]interface{}, len(ds.Columns))
	for i, name := range ds.ColumnNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for r, row := range ds.Rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			switch v.Kind {
			case domain.KindNumber:
				values[c] = v.Num
			case domain.KindText:
				values[c] = v.Text
			case domain.KindBool:
				values[c] = v.Bool
			case domain.KindDate:
				style := dateStyle
				if domain.FormatTimestamp(v.Time) != v.Time.Format(domain.DateLayout) {
					style = timestampStyle
				}
				values[c] = excelize.Cell{StyleID: style, Value: v.Time}
			default:
				values[c] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
