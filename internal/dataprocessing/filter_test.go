package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/shared/testutil"
	"sheetlens/pkg/contracts/domain"
)

func dailyDataset(t *testing.T, days ...time.Time) *domain.Dataset {
	t.Helper()
	rows := make([][]domain.Value, len(days))
	for i, d := range days {
		rows[i] = []domain.Value{domain.Date(d), domain.Number(float64(i))}
	}
	return newDataset(t, []domain.Column{
		{Name: "date", Type: domain.ColumnDate},
		{Name: "v", Type: domain.ColumnNumber},
	}, rows...)
}

func TestFilterByDateRange(t *testing.T) {
	ds := dailyDataset(t,
		testutil.Day(2024, 1, 1),
		testutil.Day(2024, 1, 2),
		testutil.Day(2024, 1, 3).Add(23*time.Hour),
		testutil.Day(2024, 1, 4),
	)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []float64
	}{
		{name: "inclusive bounds", start: testutil.Day(2024, 1, 2), end: testutil.Day(2024, 1, 3), want: []float64{1, 2}},
		{name: "single day", start: testutil.Day(2024, 1, 1), end: testutil.Day(2024, 1, 1), want: []float64{0}},
		{name: "time of day ignored", start: testutil.Day(2024, 1, 3).Add(12 * time.Hour), end: testutil.Day(2024, 1, 3).Add(time.Hour), want: []float64{2}},
		{name: "outside data", start: testutil.Day(2025, 1, 1), end: testutil.Day(2025, 2, 1), want: nil},
		{name: "everything", start: testutil.Day(2000, 1, 1), end: testutil.Day(2100, 1, 1), want: []float64{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FilterByDateRange(ds, "date", NewDateRange(tt.start, tt.end))
			require.NoError(t, err)

			var got []float64
			for _, row := range out.Rows {
				got = append(got, row[1].Num)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, ds.Columns, out.Columns)
		})
	}
}

func TestFilterByDateRangeRejectsInvertedRange(t *testing.T) {
	ds := dailyDataset(t, testutil.Day(2024, 1, 1))

	out, err := FilterByDateRange(ds, "date", NewDateRange(testutil.Day(2024, 1, 2), testutil.Day(2024, 1, 1)))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFilterByDateRangeIsIdempotent(t *testing.T) {
	ds := dailyDataset(t, testutil.Day(2024, 1, 1), testutil.Day(2024, 1, 5), testutil.Day(2024, 1, 9))
	rng := NewDateRange(testutil.Day(2024, 1, 2), testutil.Day(2024, 1, 9))

	once, err := FilterByDateRange(ds, "date", rng)
	require.NoError(t, err)
	twice, err := FilterByDateRange(once, "date", rng)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 2, once.Len())
}
