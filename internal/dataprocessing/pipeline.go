package dataprocessing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sheetlens/pkg/contracts/domain"
)

const (
	// TracerName names the tracer used for pipeline spans.
	TracerName = "sheetlens.pipeline"

	StageLoad      = "load"
	StageResolve   = "resolve"
	StageFilter    = "filter"
	StageAggregate = "aggregate"
)

// Input is everything one analysis run depends on.
type Input struct {
	Workbook   []byte
	Sheet      string
	DateColumn string
	// Start and End default to the bounds of the date column when nil.
	Start *time.Time
	End   *time.Time
	// Series names the charted numeric column. Empty picks the first one.
	Series string
	// PreviewRows caps the rows copied into the report tables. Zero keeps
	// all rows.
	PreviewRows int
}

// StageObserver is told how long each stage took and whether it failed.
type StageObserver func(ctx context.Context, stage string, elapsed time.Duration, err error)

// Pipeline runs load, resolve, filter and aggregate in order.
type Pipeline struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	observer StageObserver
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers a callback invoked after every stage.
func WithObserver(o StageObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// NewPipeline creates a pipeline. A nil logger falls back to slog.Default.
func NewPipeline(logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		logger: logger,
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one analysis. The returned report is never nil: on a fatal
// error it holds every section computed before the failing stage. A
// dataset without numeric columns is not fatal; it is reported as a notice
// and the chart series is left empty.
func (p *Pipeline) Run(ctx context.Context, in Input) (*domain.Report, error) {
	report := &domain.Report{}

	var wb *Workbook
	err := p.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error
		wb, err = ParseWorkbook(bytes.NewReader(in.Workbook), LoadOptions{Sheet: in.Sheet})
		if err != nil {
			return err
		}
		report.Sheet = wb.Sheet
		report.Sheets = wb.Sheets
		report.Raw = wb.Dataset
		report.Data = wb.Dataset.Head(in.PreviewRows)
		report.Candidates = ClassifyColumns(wb.Dataset)
		return nil
	})
	if err != nil {
		return report, err
	}

	var res *Resolution
	err = p.stage(ctx, StageResolve, func(ctx context.Context) error {
		var err error
		res, err = ResolveDateColumn(wb.Dataset, in.DateColumn)
		if err != nil {
			return err
		}
		report.DateColumn = &domain.DateColumnInfo{
			Name:         res.Column,
			AutoDetected: res.AutoDetected,
			DroppedRows:  res.Dropped,
		}
		bounds, err := DateBounds(res.Dataset, res.Column)
		if err != nil {
			return err
		}
		report.Bounds = &bounds
		return nil
	})
	if err != nil {
		return report, err
	}

	var filtered *domain.Dataset
	err = p.stage(ctx, StageFilter, func(ctx context.Context) error {
		start, end := report.Bounds.Start, report.Bounds.End
		if in.Start != nil {
			start = *in.Start
		}
		if in.End != nil {
			end = *in.End
		}
		rng := NewDateRange(start, end)
		if !rng.Valid() {
			return fmt.Errorf("%w: %s > %s", ErrInvalidRange,
				rng.Start.Format(domain.DateLayout), rng.End.Format(domain.DateLayout))
		}
		report.Range = &rng

		var err error
		filtered, err = FilterByDateRange(res.Dataset, res.Column, rng)
		if err != nil {
			return err
		}
		report.FilteredData = filtered
		report.Filtered = filtered.Head(in.PreviewRows)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("pipeline.rows_kept", filtered.Len()))
		return nil
	})
	if err != nil {
		return report, err
	}

	err = p.stage(ctx, StageAggregate, func(ctx context.Context) error {
		report.Statistics = Describe(filtered)
		if corr, ok := Correlate(filtered); ok {
			report.Correlation = corr
		}
		series, err := SelectSeries(filtered, res.Column, in.Series)
		switch {
		case errors.Is(err, ErrEmptyNumericSet):
			report.Notices = append(report.Notices, domain.Notice{
				Code:    NoticeEmptyNumericSet,
				Message: "No numeric columns remain after filtering; charts are unavailable.",
			})
		case err != nil:
			return err
		default:
			report.Series = series
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	p.logger.InfoContext(ctx, "Analysis completed",
		slog.String("sheet", report.Sheet),
		slog.String("date_column", res.Column),
		slog.Int("rows", wb.Dataset.Len()),
		slog.Int("rows_kept", filtered.Len()))

	return report, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.stage", name)),
	)
	defer span.End()

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.WarnContext(ctx, "Pipeline stage failed",
			slog.String("stage", name),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if p.observer != nil {
		p.observer(ctx, name, elapsed, err)
	}
	return err
}
