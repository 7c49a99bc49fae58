package http

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sheetlens/internal/charts"
	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/services"
	api "sheetlens/pkg/contracts/api/v1"
	"sheetlens/pkg/contracts/domain"
)

// AnalysisHandler serves the analysis API
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    StructValidator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisServiceInterface, validator StructValidator, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "analysis")),
	}
}

// Routes returns the analysis routes on a new router
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the analysis routes to r. Every route takes a multipart
// upload.
func (h *AnalysisHandler) Register(r chi.Router) {
	r.Post("/analyze", h.Analyze)
	r.Post("/analyze/charts/{kind}", h.Chart)
	r.Post("/analyze/export", h.Export)
	r.Post("/sheets", h.Sheets)
}

// Analyze handles POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	report, ok := h.run(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, report)
}

// Chart handles POST /api/analyze/charts/{kind}?format=png|svg
func (h *AnalysisHandler) Chart(w http.ResponseWriter, r *http.Request) {
	q := api.ChartQuery{
		Kind:   chi.URLParam(r, "kind"),
		Format: r.URL.Query().Get("format"),
	}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	kind, err := charts.ParseKind(q.Kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := charts.ParseFormat(q.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, ok := h.run(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.RenderChart(r.Context(), &buf, report, kind, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeFile(w, &buf, format.ContentType(), "inline", charts.FileName(kind, format))
}

// Export handles POST /api/analyze/export?format=csv|xlsx
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := api.ExportQuery{Format: r.URL.Query().Get("format")}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	format, err := services.ParseExportFormat(q.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, ok := h.run(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, report, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeFile(w, &buf, format.ContentType(), "attachment", format.FileName())
}

// Sheets handles POST /api/sheets
func (h *AnalysisHandler) Sheets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, _, err := r.FormFile(config.FormFieldFile)
	if err != nil {
		if maxErr := asMaxBytesError(err); maxErr != nil {
			h.errorHandler.HandleError(w, r, maxErr)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	workbook, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	names, err := h.service.SheetNames(r.Context(), workbook)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SheetsResponse{Sheets: names})
}

// run reads the upload and runs the analysis. On failure it writes a
// problem carrying the partial report and returns false.
func (h *AnalysisHandler) run(w http.ResponseWriter, r *http.Request) (*domain.Report, bool) {
	req, err := readAnalyzeRequest(w, r, h.maxUpload, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}

	report, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleErrorWith(w, r, err, map[string]interface{}{"report": report})
		return nil, false
	}

	h.logger.DebugContext(r.Context(), "Analysis served",
		slog.String("sheet", report.Sheet),
		slog.Int("notices", len(report.Notices)))
	return report, true
}

func writeFile(w http.ResponseWriter, buf *bytes.Buffer, contentType, disposition, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
