package http

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sheetlens/internal/charts"
	"sheetlens/internal/config"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/services"
	"sheetlens/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var chartTitles = map[charts.Kind]string{
	charts.KindLine:    "Line chart",
	charts.KindBar:     "Bar chart",
	charts.KindScatter: "Scatter plot",
	charts.KindHeatmap: "Correlation heatmap",
}

type chartImage struct {
	Kind    charts.Kind
	Title   string
	DataURI template.URL
}

// pageData is the view model shared by the upload and report pages.
type pageData struct {
	Title       string
	Version     string
	Error       string
	Report      *domain.Report
	Charts      []chartImage
	CSVDataURI  template.URL
	CSVFileName string
	Form        AnalyzeForm
	DateOptions []dateOption
	AutoDetect  bool
}

// dateOption is one entry of the date column picker
type dateOption struct {
	Column string
	Label  string
}

// HTMLHandler serves the browser dashboard
type HTMLHandler struct {
	service      AnalysisServiceInterface
	validator    StructValidator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	version      string
	pages        map[string]*template.Template
	logger       *slog.Logger
}

// NewHTMLHandler parses the embedded page templates and creates the handler.
func NewHTMLHandler(service AnalysisServiceInterface, validator StructValidator, errorHandler *apierrors.ErrorHandler, maxUpload int64, version string, logger *slog.Logger) (*HTMLHandler, error) {
	pages := make(map[string]*template.Template, 2)
	for _, name := range []string{"upload.html", "report.html"} {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &HTMLHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		version:      version,
		pages:        pages,
		logger:       logger.With(slog.String("handler", "html")),
	}, nil
}

// Routes returns the dashboard routes
func (h *HTMLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register adds the dashboard routes to r
func (h *HTMLHandler) Register(r chi.Router) {
	r.Get("/", h.Upload)
	r.Post("/report", h.Report)
	r.Get("/report", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})
}

// Upload serves the upload form
func (h *HTMLHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "upload.html", &pageData{Title: "Upload"})
}

// Report runs the analysis on the uploaded workbook and renders the dashboard.
// Failures are shown on the page with the partial report when one exists.
func (h *HTMLHandler) Report(w http.ResponseWriter, r *http.Request) {
	page := &pageData{Title: "Report"}

	req, err := readAnalyzeRequest(w, r, h.maxUpload, h.validator)
	page.Form = submittedForm(r)
	if err != nil {
		h.renderError(w, r, page, "upload.html", err)
		return
	}

	report, err := h.service.Analyze(r.Context(), req)
	page.Report = report
	page.DateOptions = dateOptions(report)
	page.AutoDetect = report != nil && report.DateColumn != nil
	if err != nil {
		h.renderError(w, r, page, "report.html", err)
		return
	}

	page.Charts = h.renderCharts(r, report)
	if report.FilteredData != nil {
		var buf bytes.Buffer
		if err := h.service.Export(r.Context(), &buf, report, services.ExportCSV); err != nil {
			h.logger.WarnContext(r.Context(), "CSV export failed", slog.String("error", err.Error()))
		} else {
			page.CSVFileName = services.ExportCSV.FileName()
			page.CSVDataURI = dataURI(services.ExportCSV.ContentType(), buf.Bytes())
		}
	}

	h.render(w, r, http.StatusOK, "report.html", page)
}

func (h *HTMLHandler) renderCharts(r *http.Request, report *domain.Report) []chartImage {
	kinds := services.AvailableCharts(report)
	images := make([]chartImage, 0, len(kinds))
	for _, kind := range kinds {
		var buf bytes.Buffer
		if err := h.service.RenderChart(r.Context(), &buf, report, kind, charts.PNG); err != nil {
			h.logger.WarnContext(r.Context(), "Chart rendering failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
			continue
		}
		images = append(images, chartImage{
			Kind:    kind,
			Title:   chartTitles[kind],
			DataURI: dataURI(charts.PNG.ContentType(), buf.Bytes()),
		})
	}
	return images
}

func (h *HTMLHandler) renderError(w http.ResponseWriter, r *http.Request, page *pageData, name string, err error) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	page.Error = problem.Detail
	if page.Error == "" {
		page.Error = problem.Title
	}
	h.logger.WarnContext(r.Context(), "Report page failed",
		slog.Int("status", problem.Status),
		slog.String("error", err.Error()))
	h.render(w, r, problem.Status, name, page)
}

// render executes into a buffer so template errors never reach the client
// half written.
func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, page *pageData) {
	page.Version = h.version
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, name, page); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// submittedForm echoes the submitted fields back into the form. It reads the
// parsed multipart values only, so a rejected body is never parsed twice.
func submittedForm(r *http.Request) AnalyzeForm {
	if r.MultipartForm == nil {
		return AnalyzeForm{}
	}
	get := func(key string) string {
		if v := r.MultipartForm.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return AnalyzeForm{
		Sheet:      get(config.FormFieldSheet),
		DateColumn: get(config.FormFieldDateColumn),
		Start:      get(config.FormFieldStart),
		End:        get(config.FormFieldEnd),
		Series:     get(config.FormFieldSeries),
	}
}

// dateOptions lists every column as a date column choice. Columns whose
// values all read as dates come first; the rest are labelled because
// choosing one drops the rows that do not parse.
func dateOptions(report *domain.Report) []dateOption {
	if report == nil {
		return nil
	}
	var dates, others []dateOption
	for _, c := range report.Candidates {
		if c.Kind == domain.CandidateUnparseable {
			others = append(others, dateOption{Column: c.Column, Label: c.Column + " (not all values are dates)"})
			continue
		}
		dates = append(dates, dateOption{Column: c.Column, Label: c.Column})
	}
	return append(dates, others...)
}

func dataURI(contentType string, data []byte) template.URL {
	// base64 output never needs escaping
	return template.URL("data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

var templateFuncs = template.FuncMap{
	"cell":   formatCell,
	"num":    formatNumber,
	"date":   func(t time.Time) string { return t.Format(domain.DateLayout) },
	"isText": func(v domain.Value) bool { return v.Kind == domain.KindText },
}

func formatCell(v domain.Value) string {
	switch x := v.Interface().(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*f, 'g', 6, 64)
}
