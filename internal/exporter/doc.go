// Package exporter writes filtered datasets out as downloadable files.
//
// CSVWriter produces filtered_data.csv: a header row of column names
// followed by each row in order. Numbers use their shortest round-trip
// form, dates are YYYY-MM-DD (with a time of day when it is not midnight)
// and missing cells are empty. WriteXLSX produces the same table as a
// workbook.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.Write(rw, report.FilteredData, exporter.WriteOptions{})
package exporter
