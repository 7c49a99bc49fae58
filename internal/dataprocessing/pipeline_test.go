package dataprocessing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/shared/testutil"
	"sheetlens/pkg/contracts/domain"
)

func salesWorkbook(t *testing.T) []byte {
	return testutil.SingleSheet(t,
		[]string{"Date", "Sales", "Cost", "Region"},
		[]any{testutil.Day(2024, 1, 3), 30, 12, "north"},
		[]any{testutil.Day(2024, 1, 1), 10, 5, "south"},
		[]any{testutil.Day(2024, 1, 2), 20, 9, "north"},
		[]any{testutil.Day(2024, 1, 4), 40, 13, "east"},
	)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPipelineRun(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	p := NewPipeline(logger)

	report, err := p.Run(context.Background(), Input{
		Workbook: salesWorkbook(t),
		Start:    timePtr(testutil.Day(2024, 1, 2)),
		End:      timePtr(testutil.Day(2024, 1, 3)),
	})
	require.NoError(t, err)

	assert.Equal(t, "Data", report.Sheet)
	assert.Equal(t, 4, report.Data.TotalRows)
	require.NotNil(t, report.DateColumn)
	assert.Equal(t, "Date", report.DateColumn.Name)
	assert.True(t, report.DateColumn.AutoDetected)

	require.NotNil(t, report.Bounds)
	assert.Equal(t, testutil.Day(2024, 1, 1), report.Bounds.Start)
	assert.Equal(t, testutil.Day(2024, 1, 4), report.Bounds.End)
	assert.Equal(t, testutil.Day(2024, 1, 2), report.Range.Start)

	require.Equal(t, 2, report.FilteredData.Len())
	assert.Equal(t, 20.0, report.FilteredData.Rows[0][1].Num)
	assert.Equal(t, 30.0, report.FilteredData.Rows[1][1].Num)

	require.Len(t, report.Statistics, 2)
	assert.Equal(t, "Sales", report.Statistics[0].Column)
	assert.InDelta(t, 25.0, *report.Statistics[0].Mean, 1e-12)

	require.NotNil(t, report.Correlation)
	assert.Equal(t, []string{"Sales", "Cost"}, report.Correlation.Columns)

	require.NotNil(t, report.Series)
	assert.Equal(t, "Sales", report.Series.Column)
	assert.Len(t, report.Series.Points, 2)
	assert.Empty(t, report.Notices)

	assert.True(t, logs.HasMessage("Analysis completed"))
}

func TestPipelineDefaultsRangeToBounds(t *testing.T) {
	report, err := NewPipeline(nil).Run(context.Background(), Input{Workbook: salesWorkbook(t), Series: "Cost"})
	require.NoError(t, err)

	assert.Equal(t, *report.Bounds, *report.Range)
	assert.Equal(t, 4, report.FilteredData.Len())
	assert.Equal(t, "Cost", report.Series.Column)
}

func TestPipelineAsksForDateColumn(t *testing.T) {
	data := testutil.SingleSheet(t,
		[]string{"When", "Value"},
		[]any{"2024-02-02", 2},
		[]any{"2024-02-01", 1},
	)
	p := NewPipeline(nil)

	report, err := p.Run(context.Background(), Input{Workbook: data})
	assert.ErrorIs(t, err, ErrNoDateColumn)
	require.NotNil(t, report.Data)
	assert.Nil(t, report.DateColumn)
	assert.Equal(t, domain.CandidateParseable, report.Candidates[0].Kind)

	report, err = p.Run(context.Background(), Input{Workbook: data, DateColumn: "When"})
	require.NoError(t, err)
	assert.False(t, report.DateColumn.AutoDetected)
	assert.Equal(t, 1.0, report.FilteredData.Rows[0][1].Num)
}

func TestPipelineInvalidRange(t *testing.T) {
	report, err := NewPipeline(nil).Run(context.Background(), Input{
		Workbook: salesWorkbook(t),
		Start:    timePtr(testutil.Day(2024, 1, 3)),
		End:      timePtr(testutil.Day(2024, 1, 2)),
	})

	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.NotNil(t, report.Bounds)
	assert.Nil(t, report.Range)
	assert.Nil(t, report.FilteredData)
}

func TestPipelineWithoutNumericColumns(t *testing.T) {
	data := testutil.SingleSheet(t,
		[]string{"Date", "Note"},
		[]any{testutil.Day(2024, 1, 1), "a"},
		[]any{testutil.Day(2024, 1, 2), "b"},
	)

	report, err := NewPipeline(nil).Run(context.Background(), Input{Workbook: data})
	require.NoError(t, err)

	assert.True(t, report.HasNotice(NoticeEmptyNumericSet))
	assert.Nil(t, report.Series)
	assert.Nil(t, report.Correlation)
	assert.Empty(t, report.Statistics)
	assert.Equal(t, 2, report.FilteredData.Len())
}

func TestPipelineInvalidSeries(t *testing.T) {
	report, err := NewPipeline(nil).Run(context.Background(), Input{Workbook: salesWorkbook(t), Series: "Region"})

	assert.ErrorIs(t, err, ErrInvalidSeries)
	assert.NotNil(t, report.FilteredData)
	assert.Nil(t, report.Series)
}

func TestPipelineIsDeterministic(t *testing.T) {
	p := NewPipeline(nil)
	in := Input{Workbook: salesWorkbook(t), Start: timePtr(testutil.Day(2024, 1, 2))}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipelineObserverSeesStagesInOrder(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	p := NewPipeline(nil, WithObserver(func(_ context.Context, stage string, _ time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, err)
		stages = append(stages, stage)
	}))

	_, err := p.Run(context.Background(), Input{Workbook: salesWorkbook(t)})
	require.NoError(t, err)

	assert.Equal(t, []string{StageLoad, StageResolve, StageFilter, StageAggregate}, stages)
}

func TestPipelineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewPipeline(nil).Run(ctx, Input{Workbook: salesWorkbook(t)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report.Data)
}
