package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sheetlens/internal/charts"
	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/infrastructure"
	"sheetlens/pkg/contracts/domain"
)

// Validator validates request forms using struct tags. Field names in
// messages come from the form tag.
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator with the analysis-specific rules
// registered: isodate, chartkind and imageformat.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("isodate", isISODate)
	_ = v.RegisterValidation("chartkind", isChartKind)
	_ = v.RegisterValidation("imageformat", isImageFormat)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{
		validator: v,
		logger:    infrastructure.WithComponent(logger, "validator"),
	}
}

// ValidateStruct validates v and returns an *errors.APIError listing every
// failed field.
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	m.logger.Debug("request validation failed", slog.Int("fields", len(out)))
	return apierrors.NewValidationErrors(out)
}

// ContentTypeValidator ensures requests have one of the given content types
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	case "chartkind":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(kindNames(), ", "))
	case "imageformat":
		return fmt.Sprintf("%s must be png or svg", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(param))
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(domain.DateLayout, fl.Field().String())
	return err == nil
}

func isChartKind(fl validator.FieldLevel) bool {
	_, err := charts.ParseKind(fl.Field().String())
	return err == nil
}

func isImageFormat(fl validator.FieldLevel) bool {
	_, err := charts.ParseFormat(fl.Field().String())
	return err == nil
}

func kindNames() []string {
	names := make([]string, len(charts.Kinds))
	for i, k := range charts.Kinds {
		names[i] = string(k)
	}
	return names
}
