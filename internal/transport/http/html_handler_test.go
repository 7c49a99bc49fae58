package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetlens/internal/config"
	"sheetlens/internal/shared/testutil"
	"sheetlens/pkg/contracts/domain"
)

func newTestHTMLHandler(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	deps := newTestDeps(t)
	logger, _ := testutil.NewTestLogger(t)
	h, err := NewHTMLHandler(deps.service, deps.validator, deps.errors, maxUpload, "1.2.3", logger)
	require.NoError(t, err)
	return h.Routes()
}

func TestUploadPage(t *testing.T) {
	h := newTestHTMLHandler(t, 1<<20)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<form method="post" action="/report" enctype="multipart/form-data">`)
	assert.Contains(t, body, `name="date_column"`)
	assert.Contains(t, body, "SheetLens 1.2.3")
}

func TestReportPage(t *testing.T) {
	h := newTestHTMLHandler(t, 1<<20)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", testutil.TenDayWorkbook(t), threeDayFields()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "Filtered data (2024-01-03 to 2024-01-05)")
	assert.Contains(t, body, "3 of 3 rows shown")
	assert.Contains(t, body, `download="filtered_data.csv"`)
	assert.Contains(t, body, `href="data:text/csv`)
	assert.Contains(t, body, "Statistics")
	assert.Contains(t, body, "Correlation")
	assert.Contains(t, body, `src="data:image/png;base64,`)
	for _, title := range []string{"Line chart", "Bar chart", "Scatter plot", "Correlation heatmap"} {
		assert.Contains(t, body, title)
	}
	// the submitted range is echoed back into the form
	assert.Contains(t, body, `value="2024-01-03"`)
}

func TestReportPageShowsCandidates(t *testing.T) {
	workbook := testutil.SingleSheet(t,
		[]string{"When", "Value"},
		[]any{"2024-02-02", 2},
		[]any{"2024-02-01", 1},
	)
	h := newTestHTMLHandler(t, 1<<20)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", workbook, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="error"`)
	assert.Contains(t, body, "Choose a date column")
	assert.Contains(t, body, `<option value="When">When</option>`)
}

func TestReportPageOffersPartlyInvalidDateColumn(t *testing.T) {
	workbook := testutil.SingleSheet(t,
		[]string{"when", "alt", "Sales"},
		[]any{"2024-01-01", "2024-03-01", 10},
		[]any{"2024-01-02", "2024-03-02", 20},
		[]any{"n/a", "2024-03-03", 30},
	)
	h := newTestHTMLHandler(t, 1<<20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", workbook, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "auto-detect</option>", "detection already failed")
	assert.Contains(t, body, `<option value="alt">alt</option>`)
	assert.Contains(t, body, `<option value="when">when (not all values are dates)</option>`)
	assert.Contains(t, body, `<option value="Sales">Sales (not all values are dates)</option>`)
	assert.Less(t, strings.Index(body, `value="alt"`), strings.Index(body, `value="when"`))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", workbook, map[string]string{
		config.FormFieldDateColumn: "when",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = rec.Body.String()
	assert.Contains(t, body, "Using <strong>when</strong>")
	assert.Contains(t, body, "1 rows without a valid date were dropped.")
	assert.Contains(t, body, "2 of 2 rows shown")
	assert.Contains(t, body, `<option value="when" selected>when (not all values are dates)</option>`)
}

func TestReportPageErrors(t *testing.T) {
	h := newTestHTMLHandler(t, 1<<20)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A workbook file is required")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, newUploadRequest(t, "/report", testutil.TenDayWorkbook(t), map[string]string{
		config.FormFieldStart: "2024-01-09",
		config.FormFieldEnd:   "2024-01-02",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start date is after end date")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestTemplateFuncs(t *testing.T) {
	assert.Equal(t, "", formatCell(domain.Missing()))
	assert.Equal(t, "2.5", formatCell(domain.Number(2.5)))
	assert.Equal(t, "north", formatCell(domain.Text("north")))
	assert.Equal(t, "true", formatCell(domain.Bool(true)))
	assert.Equal(t, "2024-01-03", formatCell(domain.Date(testutil.Day(2024, 1, 3))))

	assert.Equal(t, "n/a", formatNumber(nil))
	v := 0.123456789
	assert.Equal(t, "0.123457", formatNumber(&v))

	assert.Equal(t, []dateOption{
		{Column: "When", Label: "When"},
		{Column: "Name", Label: "Name (not all values are dates)"},
	}, dateOptions(&domain.Report{Candidates: []domain.DateCandidate{
		{Column: "Name", Kind: domain.CandidateUnparseable},
		{Column: "When", Kind: domain.CandidateParseable},
	}}))
	assert.Nil(t, dateOptions(nil))
}
