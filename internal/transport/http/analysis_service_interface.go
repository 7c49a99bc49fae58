package http

import (
	"context"
	"io"

	"sheetlens/internal/charts"
	"sheetlens/internal/services"
	"sheetlens/pkg/contracts/domain"
)

// AnalysisServiceInterface defines the analysis operations the handlers use
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*domain.Report, error)
	SheetNames(ctx context.Context, workbook []byte) ([]string, error)
	RenderChart(ctx context.Context, w io.Writer, report *domain.Report, kind charts.Kind, format charts.Format) error
	Export(ctx context.Context, w io.Writer, report *domain.Report, format services.ExportFormat) error
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
