package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	apierrors "playlistpulse/internal/errors"
	api "playlistpulse/pkg/contracts/api/v1"
)

type viewRequestKey struct{}

// ValidationMiddleware validates requests using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateDateOrder, api.ViewRequest{})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
	}
}

// validateDateOrder rejects a range whose start is after its end. Both
// dates use the YYYY-MM-DD layout, so they order lexically.
func validateDateOrder(sl validator.StructLevel) {
	req := sl.Current().Interface().(api.ViewRequest)
	if req.Start != "" && req.End != "" && req.Start > req.End {
		sl.ReportError(req.End, "end", "End", "gtefield", "start")
	}
}

// ValidateStruct validates v and returns a VALIDATION_FAILED APIError
// listing every failing field.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ParseViewRequest reads and validates view parameters from the query string.
func (m *ValidationMiddleware) ParseViewRequest(r *http.Request) (api.ViewRequest, error) {
	q := r.URL.Query()
	req := api.ViewRequest{
		View:   strings.TrimSpace(q.Get("view")),
		Mode:   strings.TrimSpace(q.Get("mode")),
		Artist: q.Get("artist"),
		Start:  strings.TrimSpace(q.Get("start")),
		End:    strings.TrimSpace(q.Get("end")),
	}

	if v := strings.TrimSpace(q.Get("top_n")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apierrors.ErrValidation("top_n", "top_n must be a valid integer")
		}
		req.TopN = n
	}
	if v := strings.TrimSpace(q.Get("raw")); v != "" {
		raw, err := strconv.ParseBool(v)
		if err != nil {
			return req, apierrors.ErrValidation("raw", "raw must be true or false")
		}
		req.Raw = raw
	}

	return req, m.ValidateStruct(req)
}

// ViewQuery validates the view query parameters and stores the request
// on the context for the handler.
func (m *ValidationMiddleware) ViewQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := m.ParseViewRequest(r)
		if err != nil {
			m.logger.DebugContext(r.Context(), "view query rejected",
				slog.String("error", err.Error()),
				slog.String("query", r.URL.RawQuery),
				slog.String("request_id", middleware.GetReqID(r.Context())))
			m.errorHandler.HandleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewRequestKey{}, req)))
	})
}

// ViewRequestFromContext returns the request stored by ViewQuery.
func ViewRequestFromContext(ctx context.Context) (api.ViewRequest, bool) {
	req, ok := ctx.Value(viewRequestKey{}).(api.ViewRequest)
	return req, ok
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func (m *ValidationMiddleware) ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
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

			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
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
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
