// Command sheetlens-report runs one analysis from the command line and
// writes report.json, the filtered rows and every available chart to a
// directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"sheetlens/internal/charts"
	"sheetlens/internal/config"
	"sheetlens/internal/exporter"
	"sheetlens/internal/infrastructure"
	"sheetlens/internal/services"
	"sheetlens/internal/validation"
	"sheetlens/pkg/contracts"
	"sheetlens/pkg/contracts/domain"
)

// ReportFileName is the JSON report written next to the exports
const ReportFileName = "report.json"

type options struct {
	in          string
	out         string
	configPath  string
	sheet       string
	dateColumn  string
	start       string
	end         string
	series      string
	chartFormat string
	export      string
	logLevel    string
	version     bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "sheetlens-report: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("sheetlens-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input .xlsx workbook (required)")
	fs.StringVar(&o.out, "out", ".", "output directory")
	fs.StringVar(&o.configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&o.sheet, "sheet", "", "worksheet name (defaults to the first sheet)")
	fs.StringVar(&o.dateColumn, "date-column", "", "date column (defaults to the first date-typed column)")
	fs.StringVar(&o.start, "start", "", "first day to keep, YYYY-MM-DD (defaults to the earliest date)")
	fs.StringVar(&o.end, "end", "", "last day to keep, YYYY-MM-DD (defaults to the latest date)")
	fs.StringVar(&o.series, "series", "", "numeric column to chart (defaults to the first numeric column)")
	fs.StringVar(&o.chartFormat, "chart-format", "png", "chart image format: png or svg")
	fs.StringVar(&o.export, "export", "csv", "filtered data format: csv or xlsx")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	fs.BoolVar(&o.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.in == "" && !o.version {
		fs.Usage()
		return o, errors.New("-in is required")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	ctx, _ = infrastructure.EnsureTraceID(ctx, "")
	logger := infrastructure.NewJSONLogger(stderr, o.logLevel)

	format, err := charts.ParseFormat(o.chartFormat)
	if err != nil {
		return err
	}
	exportFormat, err := services.ParseExportFormat(o.export)
	if err != nil {
		return err
	}

	req := services.AnalysisRequest{
		Sheet:      o.sheet,
		DateColumn: o.dateColumn,
		Series:     o.series,
		// reports written to disk carry every row
		PreviewRows: -1,
	}
	if req.Start, err = parseDate("start", o.start); err != nil {
		return err
	}
	if req.End, err = parseDate("end", o.end); err != nil {
		return err
	}

	files := validation.NewFileValidator(cfg.Server.MaxUploadBytes, logger)
	if err := files.ValidateWorkbook(o.in); err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(o.out); err != nil {
		return err
	}
	if req.Workbook, err = os.ReadFile(o.in); err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}

	service := services.NewAnalysisService(cfg.Analysis, nil, logger)
	report, analyzeErr := service.Analyze(ctx, req)
	if report != nil {
		if err := writeJSON(filepath.Join(o.out, ReportFileName), report); err != nil {
			return err
		}
		fmt.Fprintln(stdout, filepath.Join(o.out, ReportFileName))
	}
	if analyzeErr != nil {
		if report == nil {
			return analyzeErr
		}
		for _, c := range report.Candidates {
			fmt.Fprintf(stderr, "date column candidate: %s (%s)\n", c.Column, c.Kind)
		}
		return analyzeErr
	}
	for _, n := range report.Notices {
		fmt.Fprintf(stderr, "notice: %s\n", n.Message)
	}

	exportPath := filepath.Join(o.out, exportFormat.FileName())
	if exportFormat == services.ExportCSV {
		csvOpts := exporter.WriteOptions{BOMPrefix: cfg.Analysis.CSVBOM}
		if err := exporter.NewCSVWriter(logger).WriteFile(exportPath, report.FilteredData, csvOpts); err != nil {
			_ = os.Remove(exportPath)
			return err
		}
	} else if err := writeFile(exportPath, func(w io.Writer) error {
		return service.Export(ctx, w, report, exportFormat)
	}); err != nil {
		return err
	}
	fmt.Fprintln(stdout, exportPath)

	for _, kind := range services.AvailableCharts(report) {
		path := filepath.Join(o.out, charts.FileName(kind, format))
		if err := writeFile(path, func(w io.Writer) error {
			return service.RenderChart(ctx, w, report, kind, format)
		}); err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
	}
	return nil
}

func parseDate(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("-%s: expected YYYY-MM-DD, got %q", name, s)
	}
	return &t, nil
}

func writeJSON(path string, v interface{}) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// writeFile creates path and fills it with write. A failed write removes
// the partial file.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
