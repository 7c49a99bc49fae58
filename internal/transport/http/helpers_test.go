package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/middleware"
	"sheetlens/internal/services"
	"sheetlens/internal/shared/testutil"
)

type testDeps struct {
	service   *services.AnalysisService
	validator *middleware.Validator
	errors    *apierrors.ErrorHandler
	logs      *testutil.LogCapture
}

func newTestDeps(t *testing.T) testDeps {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	return testDeps{
		service:   services.NewAnalysisService(config.Default().Analysis, nil, logger),
		validator: middleware.NewValidator(logger),
		errors:    apierrors.NewErrorHandler(logger, false),
		logs:      logs,
	}
}

// newUploadRequest builds a multipart POST carrying workbook under the file
// field. A nil workbook leaves the file part out.
func newUploadRequest(t *testing.T, target string, workbook []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if workbook != nil {
		part, err := mw.CreateFormFile(config.FormFieldFile, "data.xlsx")
		require.NoError(t, err)
		_, err = part.Write(workbook)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func threeDayFields() map[string]string {
	return map[string]string{
		config.FormFieldStart: "2024-01-03",
		config.FormFieldEnd:   "2024-01-05",
	}
}
