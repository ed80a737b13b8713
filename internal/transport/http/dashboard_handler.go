package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/exporter"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/internal/middleware"
	"playlistpulse/internal/services"
	api "playlistpulse/pkg/contracts/api/v1"
	"playlistpulse/pkg/contracts/domain"
	"playlistpulse/pkg/contracts/events"
)

// Parts of a multipart upload above this size are spooled to disk.
const multipartMemory = 8 << 20

// DashboardHandler serves uploads, views and exports for the caller's session
type DashboardHandler struct {
	service        DashboardServiceInterface
	notifier       SessionNotifier
	validation     *middleware.ValidationMiddleware
	maxUploadBytes int64
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler. notifier may be nil.
func NewDashboardHandler(
	service DashboardServiceInterface,
	notifier SessionNotifier,
	validation *middleware.ValidationMiddleware,
	maxUploadBytes int64,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *DashboardHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.DefaultMaxUploadBytes
	}
	return &DashboardHandler{
		service:        service,
		notifier:       notifier,
		validation:     validation,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the dashboard routes. They expect an authenticated session
// on the request context.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(h.validation.ContentTypeValidator("multipart/form-data")).Post("/upload", h.Upload)
	r.Delete("/dataset", h.ClearDataset)
	r.Get("/session", h.Session)

	r.Group(func(r chi.Router) {
		r.Use(h.validation.ViewQuery)
		r.Get("/view", h.View)
		r.Get("/chart/{format}", h.Chart)
		r.Get("/export/{format}", h.Export)
	})

	return r
}

// Upload handles POST /upload. Every file in the form field replaces the
// session's dataset; a form without files clears it.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := infrastructure.GetSessionID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads, err := readUploads(r.MultipartForm.File[config.UploadFormField])
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	result, err := h.service.Upload(ctx, sessionID, uploads)
	if errors.Is(err, services.ErrNoInput) {
		h.notify(sessionID, events.MessageTypeDatasetCleared, nil)
		render.JSON(w, r, map[string]interface{}{
			"status":  api.StatusNoInput,
			"message": services.MessageNoInput,
		})
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "upload rejected",
			slog.String("error", err.Error()),
			slog.Int("files", len(uploads)),
			slog.String("request_id", middleware.GetRequestID(ctx)))
		h.notify(sessionID, events.MessageTypeDatasetCleared, nil)
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	h.notify(sessionID, events.MessageTypeDatasetUpdated, events.DatasetEvent{
		Fingerprint: result.Fingerprint,
		Records:     result.Records,
		Artists:     result.Artists,
	})

	render.JSON(w, r, map[string]interface{}{
		"status": api.StatusSuccess,
		"data": api.UploadResponse{
			Cached:      result.Cached,
			Fingerprint: result.Fingerprint,
			Records:     result.Records,
			Artists:     result.Artists,
			DateBounds:  result.DateBounds,
			Report:      result.Report,
		},
	})
}

// View handles GET /view
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, sel, ok := h.viewParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.View(ctx, infrastructure.GetSessionID(ctx), filter, sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	status := api.StatusSuccess
	if result.Status == domain.ViewStatusNoInput {
		status = api.StatusNoInput
	}
	render.JSON(w, r, map[string]interface{}{
		"status": status,
		"data":   result,
	})
}

// Chart handles GET /chart/{format}, returning the view's chart as an image
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil || !format.IsChart() {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "chart format must be png or svg"))
		return
	}
	h.export(w, r, format, "inline")
}

// Export handles GET /export/{format}, returning the view as a download
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}
	h.export(w, r, format, "attachment")
}

func (h *DashboardHandler) export(w http.ResponseWriter, r *http.Request, format exporter.Format, disposition string) {
	ctx := r.Context()
	filter, sel, ok := h.viewParams(w, r)
	if !ok {
		return
	}

	file, err := h.service.Export(ctx, infrastructure.GetSessionID(ctx), filter, sel, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, services.ToAPIError(err))
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Name}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.WarnContext(ctx, "failed to write export",
			slog.String("error", err.Error()),
			slog.String("file", file.Name),
			slog.String("request_id", middleware.GetRequestID(ctx)))
	}
}

// ClearDataset handles DELETE /dataset
func (h *DashboardHandler) ClearDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := infrastructure.GetSessionID(ctx)

	h.service.Invalidate(ctx, sessionID)
	h.notify(sessionID, events.MessageTypeDatasetCleared, nil)

	render.JSON(w, r, map[string]interface{}{
		"status":  api.StatusSuccess,
		"message": services.MessageNoInput,
	})
}

// Session handles GET /session
func (h *DashboardHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := infrastructure.GetSessionID(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": api.StatusSuccess,
		"data": api.SessionResponse{
			Authenticated: sessionID != "",
			HasDataset:    sessionID != "" && h.service.HasDataset(sessionID),
		},
	})
}

// viewParams returns the filter and selection stored by ViewQuery. On
// failure the error response has been written.
func (h *DashboardHandler) viewParams(w http.ResponseWriter, r *http.Request) (domain.FilterState, domain.ViewSelection, bool) {
	req, ok := middleware.ViewRequestFromContext(r.Context())
	if !ok {
		parsed, err := h.validation.ParseViewRequest(r)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return domain.FilterState{}, domain.ViewSelection{}, false
		}
		req = parsed
	}

	filter, err := req.Filter()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("date", err.Error()))
		return domain.FilterState{}, domain.ViewSelection{}, false
	}
	return filter, req.Selection(), true
}

func (h *DashboardHandler) notify(sessionID string, msgType events.MessageType, data interface{}) {
	if h.notifier == nil || sessionID == "" {
		return
	}
	h.notifier.NotifySession(sessionID, msgType, data)
}

// readUploads reads every uploaded file into memory, keeping only the base
// of each client supplied name.
func readUploads(headers []*multipart.FileHeader) ([]domain.Upload, error) {
	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		uploads = append(uploads, domain.Upload{
			Name:    filepath.Base(fh.Filename),
			Content: content,
		})
	}
	return uploads, nil
}
