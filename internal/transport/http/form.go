package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/services"
	"sheetlens/pkg/contracts/domain"
)

// multipartMemory is kept in memory by ParseMultipartForm; larger parts
// spill to temporary files.
const multipartMemory = 8 << 20

// MaxPreviewRows bounds the preview_rows form field. The field also takes
// -1 for every row, while 0 or an absent field keeps the configured default.
const MaxPreviewRows = 100000

// AnalyzeForm holds the text fields of an analysis upload.
type AnalyzeForm struct {
	Sheet       string `form:"sheet" validate:"max=31"`
	DateColumn  string `form:"date_column" validate:"max=255"`
	Start       string `form:"start" validate:"omitempty,isodate"`
	End         string `form:"end" validate:"omitempty,isodate"`
	Series      string `form:"series" validate:"max=255"`
	PreviewRows int    `form:"preview_rows" validate:"gte=-1,lte=100000"`
}

// StructValidator validates tagged structs.
type StructValidator interface {
	ValidateStruct(v interface{}) error
}

// readAnalyzeRequest parses the multipart upload of r into an analysis
// request. The body is capped at maxBytes.
func readAnalyzeRequest(w http.ResponseWriter, r *http.Request, maxBytes int64, v StructValidator) (services.AnalysisRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if maxErr := asMaxBytesError(err); maxErr != nil {
			return services.AnalysisRequest{}, maxErr
		}
		return services.AnalysisRequest{}, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	form, err := decodeAnalyzeForm(r)
	if err != nil {
		return services.AnalysisRequest{}, err
	}
	if err := v.ValidateStruct(form); err != nil {
		return services.AnalysisRequest{}, err
	}

	file, _, err := r.FormFile(config.FormFieldFile)
	if err != nil {
		return services.AnalysisRequest{}, apierrors.ErrMissingFile
	}
	defer file.Close()

	workbook, err := io.ReadAll(file)
	if err != nil {
		return services.AnalysisRequest{}, fmt.Errorf("read upload: %w", err)
	}
	if len(workbook) == 0 {
		return services.AnalysisRequest{}, apierrors.ErrMissingFile
	}

	return form.request(workbook)
}

func decodeAnalyzeForm(r *http.Request) (AnalyzeForm, error) {
	form := AnalyzeForm{
		Sheet:      strings.TrimSpace(r.FormValue(config.FormFieldSheet)),
		DateColumn: strings.TrimSpace(r.FormValue(config.FormFieldDateColumn)),
		Start:      strings.TrimSpace(r.FormValue(config.FormFieldStart)),
		End:        strings.TrimSpace(r.FormValue(config.FormFieldEnd)),
		Series:     strings.TrimSpace(r.FormValue(config.FormFieldSeries)),
	}
	if raw := strings.TrimSpace(r.FormValue(config.FormFieldPreviewRows)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return form, apierrors.NewValidationErrors([]apierrors.ValidationError{{
				Field:   config.FormFieldPreviewRows,
				Message: "preview_rows must be an integer",
			}})
		}
		form.PreviewRows = n
	}
	return form, nil
}

// request converts a validated form. Dates were checked by the validator.
func (f AnalyzeForm) request(workbook []byte) (services.AnalysisRequest, error) {
	req := services.AnalysisRequest{
		Workbook:    workbook,
		Sheet:       f.Sheet,
		DateColumn:  f.DateColumn,
		Series:      f.Series,
		PreviewRows: f.PreviewRows,
	}
	var err error
	if req.Start, err = parseOptionalDate(f.Start); err != nil {
		return req, err
	}
	if req.End, err = parseOptionalDate(f.End); err != nil {
		return req, err
	}
	return req, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	return &t, nil
}

func asMaxBytesError(err error) *http.MaxBytesError {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return maxErr
	}
	return nil
}
