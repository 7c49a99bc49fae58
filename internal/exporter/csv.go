package exporter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sheetlens/pkg/contracts/domain"
)

// Artifact names and media types of the export downloads.
const (
	CSVFileName     = "filtered_data.csv"
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXFileName    = "filtered_data.xlsx"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export of datasets
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write encodes ds as CSV: a header row of column names followed by every
// row in order.
func (w *CSVWriter) Write(dst io.Writer, ds *domain.Dataset, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := dst.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(dst)
	if err := writer.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range Records(ds) {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Bytes returns the CSV encoding of ds.
func (w *CSVWriter) Bytes(ds *domain.Dataset, opts WriteOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, ds, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes ds to path, creating parent directories as needed.
func (w *CSVWriter) WriteFile(path string, ds *domain.Dataset, opts WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", ds.Len()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	bw := bufio.NewWriter(file)
	if err := w.Write(bw, ds, opts); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadCSV parses CSV written by Write, dropping a leading BOM.
func ReadCSV(r io.Reader) (header []string, records [][]string, err error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, nil, err
		}
	}

	all, err := csv.NewReader(br).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("failed to read CSV: no header row")
	}
	return all[0], all[1:], nil
}
