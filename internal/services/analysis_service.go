package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"sheetlens/internal/charts"
	"sheetlens/internal/config"
	"sheetlens/internal/dataprocessing"
	"sheetlens/internal/exporter"
	"sheetlens/internal/infrastructure"
	"sheetlens/pkg/contracts/domain"
)

// ExportFormat selects the encoding of exported filtered rows.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

var (
	ErrUnknownExportFormat = errors.New("unknown export format")
	// ErrNoFilteredData means the report stopped before the filter stage.
	ErrNoFilteredData = errors.New("report has no filtered data")
)

// ParseExportFormat validates an export format name. Empty means CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExportFormat, s)
}

// FileName is the attachment name of the export.
func (f ExportFormat) FileName() string {
	if f == ExportXLSX {
		return exporter.XLSXFileName
	}
	return exporter.CSVFileName
}

// ContentType is the media type of the export.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return exporter.XLSXContentType
	}
	return exporter.CSVContentType
}

// AnalysisRequest holds the inputs of one analysis.
type AnalysisRequest struct {
	Workbook    []byte
	Sheet       string
	DateColumn  string
	Start       *time.Time
	End         *time.Time
	Series      string
	PreviewRows int
}

// AnalysisService runs the pipeline and renders its outputs. Reports may be
// served from a cache and shared between callers, so they must be treated
// as read-only.
type AnalysisService struct {
	pipeline *dataprocessing.Pipeline
	csv      *exporter.CSVWriter
	cache    *reportCache
	group    singleflight.Group
	cfg      config.AnalysisConfig
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// NewAnalysisService creates the service. metrics may be nil.
func NewAnalysisService(cfg config.AnalysisConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "analysis_service")

	s := &AnalysisService{
		csv:     exporter.NewCSVWriter(logger),
		cache:   newReportCache(cfg.CacheSize, cfg.CacheTTL),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
	s.pipeline = dataprocessing.NewPipeline(logger, dataprocessing.WithObserver(metrics.RecordStage))

	logger.Info("AnalysisService initialized",
		slog.Int("preview_rows", cfg.PreviewRows),
		slog.Int("cache_size", cfg.CacheSize),
		slog.Duration("cache_ttl", cfg.CacheTTL))
	return s
}

type analysisResult struct {
	report *domain.Report
	err    error
}

// Analyze runs the pipeline over req. On failure the returned report holds
// every section computed before the failing stage. Successful reports are
// cached and concurrent identical requests share one run.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*domain.Report, error) {
	if req.PreviewRows == 0 {
		req.PreviewRows = s.cfg.PreviewRows
	}

	key := requestKey(req)
	if report, ok := s.cache.get(key); ok {
		s.metrics.RecordCache(ctx, "hit")
		s.logger.DebugContext(ctx, "Report served from cache", slog.String("key", key[:12]))
		return report, nil
	}

	v, _, shared := s.group.Do(key, func() (interface{}, error) {
		report, err := s.run(ctx, req)
		if err == nil {
			s.cache.add(key, report)
		}
		return analysisResult{report: report, err: err}, nil
	})
	if shared {
		s.metrics.RecordCache(ctx, "shared")
	} else if s.cache != nil {
		s.metrics.RecordCache(ctx, "miss")
	}

	res := v.(analysisResult)
	return res.report, res.err
}

func (s *AnalysisService) run(ctx context.Context, req AnalysisRequest) (*domain.Report, error) {
	report, err := s.pipeline.Run(ctx, dataprocessing.Input{
		Workbook:    req.Workbook,
		Sheet:       req.Sheet,
		DateColumn:  req.DateColumn,
		Start:       req.Start,
		End:         req.End,
		Series:      req.Series,
		PreviewRows: req.PreviewRows,
	})

	outcome := "success"
	switch {
	case err != nil:
		outcome = "failure"
		s.logger.WarnContext(ctx, "Analysis failed",
			slog.String("error", err.Error()),
			slog.Int("workbook_bytes", len(req.Workbook)))
	case report.HasNotice(dataprocessing.NoticeEmptyNumericSet):
		outcome = "notice"
	}
	s.metrics.RecordRun(ctx, outcome, report.Raw.Len(), report.FilteredData.Len())

	return report, err
}

// SheetNames lists the worksheets of a workbook.
func (s *AnalysisService) SheetNames(ctx context.Context, workbook []byte) ([]string, error) {
	names, err := dataprocessing.SheetNames(bytes.NewReader(workbook))
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list sheets", slog.String("error", err.Error()))
		return nil, err
	}
	return names, nil
}

// ChartOptions returns the configured chart size for format.
func (s *AnalysisService) ChartOptions(format charts.Format) charts.Options {
	return charts.Options{
		Width:  s.cfg.ChartWidth,
		Height: s.cfg.ChartHeight,
		Format: format,
	}
}

// RenderChart draws one chart of report to w.
func (s *AnalysisService) RenderChart(ctx context.Context, w io.Writer, report *domain.Report, kind charts.Kind, format charts.Format) error {
	if err := charts.Render(w, kind, report, s.ChartOptions(format)); err != nil {
		s.logger.DebugContext(ctx, "Chart not rendered",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return err
	}
	if s.metrics != nil {
		s.metrics.ChartsRenderedTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("format", string(format)),
		))
	}
	return nil
}

// AvailableCharts lists the chart kinds report can produce.
func AvailableCharts(report *domain.Report) []charts.Kind {
	var kinds []charts.Kind
	if report == nil {
		return kinds
	}
	if report.Series != nil && len(report.Series.Points) > 0 {
		kinds = append(kinds, charts.KindLine, charts.KindBar, charts.KindScatter)
	}
	if report.Correlation != nil {
		kinds = append(kinds, charts.KindHeatmap)
	}
	return kinds
}

// Export writes the filtered rows of report to w.
func (s *AnalysisService) Export(ctx context.Context, w io.Writer, report *domain.Report, format ExportFormat) error {
	if report == nil || report.FilteredData == nil {
		return ErrNoFilteredData
	}

	var err error
	switch format {
	case ExportCSV:
		err = s.csv.Write(w, report.FilteredData, exporter.WriteOptions{BOMPrefix: s.cfg.CSVBOM})
	case ExportXLSX:
		err = exporter.WriteXLSX(w, report.FilteredData)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(format))))
	}
	s.logger.InfoContext(ctx, "Filtered data exported",
		slog.String("format", string(format)),
		slog.Int("rows", report.FilteredData.Len()))
	return nil
}

// Health reports the analysis service state for readiness checks.
func (s *AnalysisService) Health(ctx context.Context) ServiceHealth {
	if s.cache == nil {
		return Ready("report cache disabled")
	}
	return Ready(fmt.Sprintf("%d of %d cached reports", s.cache.len(), s.cfg.CacheSize))
}
