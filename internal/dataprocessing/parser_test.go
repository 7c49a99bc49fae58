package dataprocessing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/shared/testutil"
	"sheetlens/pkg/contracts/domain"
)

func TestParseWorkbookInfersColumnTypes(t *testing.T) {
	data := testutil.SingleSheet(t,
		[]string{"Date", "Sales", "Region", "Active"},
		[]any{testutil.Day(2024, 1, 2), 10.5, "north", true},
		[]any{testutil.Day(2024, 1, 1), 7, "south", false},
		[]any{testutil.Day(2024, 1, 3), nil, "east", true},
	)

	wb, err := ParseWorkbook(bytes.NewReader(data), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Data", wb.Sheet)
	assert.Equal(t, []string{"Data"}, wb.Sheets)

	ds := wb.Dataset
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, []domain.Column{
		{Name: "Date", Type: domain.ColumnDate},
		{Name: "Sales", Type: domain.ColumnNumber},
		{Name: "Region", Type: domain.ColumnText},
		{Name: "Active", Type: domain.ColumnBool},
	}, ds.Columns)

	first := ds.Rows[0]
	assert.True(t, first[0].Time.Equal(testutil.Day(2024, 1, 2)))
	assert.Equal(t, 10.5, first[1].Num)
	assert.Equal(t, "north", first[2].Text)
	assert.True(t, first[3].Bool)

	// source order is preserved at load time
	assert.True(t, ds.Rows[1][0].Time.Equal(testutil.Day(2024, 1, 1)))
	assert.True(t, ds.Rows[2][1].IsMissing())
}

func TestParseWorkbookMixedColumnBecomesText(t *testing.T) {
	data := testutil.SingleSheet(t,
		[]string{"Mixed"},
		[]any{5},
		[]any{"five"},
	)

	wb, err := ParseWorkbook(bytes.NewReader(data), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.ColumnText, wb.Dataset.Columns[0].Type)
	assert.Equal(t, "5", wb.Dataset.Rows[0][0].Text)
	assert.Equal(t, "five", wb.Dataset.Rows[1][0].Text)
}

func TestParseWorkbookSheetSelection(t *testing.T) {
	data := testutil.BuildWorkbook(t,
		testutil.Sheet{Name: "First", Header: []string{"a"}, Rows: [][]any{{1}}},
		testutil.Sheet{Name: "Second", Header: []string{"b"}, Rows: [][]any{{2}, {3}}},
	)

	tests := []struct {
		name      string
		sheet     string
		wantSheet string
		wantRows  int
		wantErr   error
	}{
		{name: "default is first sheet", wantSheet: "First", wantRows: 1},
		{name: "named sheet", sheet: "Second", wantSheet: "Second", wantRows: 2},
		{name: "unknown sheet", sheet: "Third", wantErr: ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb, err := ParseWorkbook(bytes.NewReader(data), LoadOptions{Sheet: tt.sheet})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSheet, wb.Sheet)
			assert.Equal(t, tt.wantRows, wb.Dataset.Len())
			assert.Equal(t, []string{"First", "Second"}, wb.Sheets)
		})
	}
}

func TestParseWorkbookRejectsInvalidInput(t *testing.T) {
	_, err := ParseWorkbook(bytes.NewReader([]byte("not a workbook")), LoadOptions{})
	assert.ErrorIs(t, err, ErrParse)

	_, err = ParseWorkbook(bytes.NewReader(nil), LoadOptions{})
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseWorkbookEmptySheet(t *testing.T) {
	data := testutil.BuildWorkbook(t, testutil.Sheet{Name: "Empty"})

	_, err := ParseWorkbook(bytes.NewReader(data), LoadOptions{})
	assert.ErrorIs(t, err, ErrParse)
}

func TestSheetNames(t *testing.T) {
	data := testutil.BuildWorkbook(t,
		testutil.Sheet{Name: "One", Header: []string{"a"}},
		testutil.Sheet{Name: "Two", Header: []string{"b"}},
	)

	names, err := SheetNames(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, names)
}

func TestHeaderNames(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		width  int
		want   []string
	}{
		{name: "plain", header: []string{"a", "b"}, width: 2, want: []string{"a", "b"}},
		{name: "blank", header: []string{"a", " "}, width: 2, want: []string{"a", "Unnamed: 1"}},
		{name: "wider than header", header: []string{"a"}, width: 3, want: []string{"a", "Unnamed: 1", "Unnamed: 2"}},
		{name: "duplicates", header: []string{"a", "a", "a"}, width: 3, want: []string{"a", "a.1", "a.2"}},
		{name: "suffix collision", header: []string{"a", "a.1", "a"}, width: 3, want: []string{"a", "a.1", "a.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, headerNames(tt.header, tt.width))
		})
	}
}

func TestDateFormatDetection(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"d/m/yy h:mm", true},
		{"[$-409]h:mm AM/PM", true},
		{"mm:ss", true},
		{"General", false},
		{"0.00", false},
		{"#,##0", false},
		{`"day" 0`, false},
		{"0.00;[Red]-0.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormatCode(tt.code))
		})
	}

	assert.True(t, isBuiltInDateFormat(14))
	assert.True(t, isBuiltInDateFormat(22))
	assert.False(t, isBuiltInDateFormat(2))
	assert.False(t, isBuiltInDateFormat(49))
}
