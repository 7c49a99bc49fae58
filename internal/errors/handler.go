package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"sheetlens/internal/charts"
	"sheetlens/internal/dataprocessing"
	"sheetlens/internal/infrastructure"
	"sheetlens/internal/services"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       infrastructure.WithComponent(logger, "error_handler"),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	h.HandleErrorWith(w, r, err, nil)
}

// HandleErrorWith is HandleError with extra extension members merged into
// the problem, such as the partially filled report of a failed analysis.
func (h *ErrorHandler) HandleErrorWith(w http.ResponseWriter, r *http.Request, err error, extensions map[string]interface{}) {
	if err == nil {
		return
	}

	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", requestID(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	for k, v := range extensions {
		problem.WithExtension(k, v)
	}
	problem.WithExtension("trace_id", requestID(r))
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	h.Write(w, problem)
}

// Write sends problem as application/problem+json
func (h *ErrorHandler) Write(w http.ResponseWriter, problem *ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(problem.Status)
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		h.logger.Error("failed to encode problem", slog.String("error", err.Error()))
	}
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	problem := func(status int, problemType, title string) *ProblemDetails {
		return NewProblemDetails(status, problemType, title, err.Error(), r.URL.Path)
	}

	var (
		apiErr   *APIError
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)

	case errors.As(err, &apiErr):
		return h.apiErrorToProblem(apiErr, r)

	case errors.As(err, &maxBytes):
		return h.apiErrorToProblem(PayloadTooLarge(maxBytes.Limit), r)

	case errors.Is(err, dataprocessing.ErrParse):
		return problem(http.StatusBadRequest, TypeWorkbookParse, "Workbook Could Not Be Parsed")

	case errors.Is(err, dataprocessing.ErrNoDateColumn):
		return problem(http.StatusUnprocessableEntity, TypeNoDateColumn, "No Date Column")

	case errors.Is(err, dataprocessing.ErrInvalidRange):
		return problem(http.StatusBadRequest, TypeInvalidRange, "Invalid Date Range")

	case errors.Is(err, dataprocessing.ErrInvalidSeries):
		return problem(http.StatusBadRequest, TypeInvalidSeries, "Invalid Series")

	case errors.Is(err, dataprocessing.ErrEmptyNumericSet):
		return problem(http.StatusUnprocessableEntity, TypeEmptyNumericSet, "No Numeric Columns")

	case errors.Is(err, charts.ErrNoSeries), errors.Is(err, charts.ErrNoCorrelation):
		return problem(http.StatusUnprocessableEntity, TypeChartUnavailable, "Chart Unavailable")

	case errors.Is(err, services.ErrNoFilteredData):
		return problem(http.StatusUnprocessableEntity, TypeNoDateColumn, "No Filtered Data")

	case errors.Is(err, charts.ErrUnknownKind), errors.Is(err, charts.ErrUnknownFormat),
		errors.Is(err, services.ErrUnknownExportFormat):
		return problem(http.StatusBadRequest, TypeValidation, "Validation Failed")

	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest, CodeMissingFile:
		problemType = TypeValidation
	case CodeNotFound:
		problemType = TypeNotFound
	case CodePayloadTooLarge:
		problemType = TypePayloadTooLarge
	case CodeRateLimitExceeded:
		problemType = TypeRateLimit
	case CodeWebSocketUpgradeFailed:
		problemType = TypeWebSocketUpgrade
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := requestID(r)

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	h.Write(w, problem)
}

// NotFound answers requests no route matches
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NotFoundError(r.URL.Path))
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.Write(w, NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", requestID(r)))
}

// RecoveryMiddleware provides panic recovery with proper error responses
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					handler.HandlePanic(w, r, rvr)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestID prefers the trace ID set by our RequestID middleware and
// falls back to chi's request ID.
func requestID(r *http.Request) string {
	if id := infrastructure.GetTraceID(r.Context()); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
