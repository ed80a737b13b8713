package http

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/middleware"
	api "playlistpulse/pkg/contracts/api/v1"
)

const maxLoginBytes = 4 << 10

// PasswordChecker verifies the shared secret.
type PasswordChecker interface {
	Check(ctx context.Context, password string) error
}

// SessionStore issues and clears authenticated sessions.
type SessionStore interface {
	CreateSession(w http.ResponseWriter, r *http.Request) (string, error)
	SessionID(r *http.Request) (string, bool)
	DestroySession(w http.ResponseWriter, r *http.Request) string
}

// AuthHandler handles the shared secret gate
type AuthHandler struct {
	checker      PasswordChecker
	sessions     SessionStore
	dashboard    DashboardServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	checker PasswordChecker,
	sessions SessionStore,
	dashboard DashboardServiceInterface,
	validation *middleware.ValidationMiddleware,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *AuthHandler {
	return &AuthHandler{
		checker:      checker,
		sessions:     sessions,
		dashboard:    dashboard,
		validation:   validation,
		logger:       logger.With(slog.String("handler", "auth")),
		errorHandler: errorHandler,
	}
}

// Routes returns the auth routes. None of them require a session.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuditLog(h.logger))
		r.With(h.validation.ContentTypeValidator("application/json", "application/x-www-form-urlencoded", "multipart/form-data")).
			Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
	r.Get("/status", h.Status)

	return r
}

// Login handles POST /login. The password is read from a JSON body or a form.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("auth-handler").Start(r.Context(), "auth.login")
	defer span.End()
	r = r.WithContext(ctx)

	req, err := h.decodeLogin(w, r)
	if err != nil {
		span.SetStatus(codes.Error, "invalid login request")
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validation.ValidateStruct(req); err != nil {
		span.SetStatus(codes.Error, "invalid login request")
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.checker.Check(ctx, req.Password); err != nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.SetStatus(codes.Error, "authentication failed")
		h.errorHandler.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Bool("auth.success", true))

	sessionID, err := h.sessions.CreateSession(w, r)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create session",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(ctx)))
		span.RecordError(err)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "session authenticated",
		slog.String("session_id", sessionID),
		slog.String("remote_addr", middleware.GetRealIP(r)))

	render.JSON(w, r, map[string]interface{}{
		"status": api.StatusSuccess,
		"data":   api.SessionResponse{Authenticated: true},
	})
}

// Logout handles POST /logout and drops the session's dataset
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sessionID := h.sessions.DestroySession(w, r); sessionID != "" {
		h.dashboard.Invalidate(ctx, sessionID)
		h.logger.InfoContext(ctx, "session closed", slog.String("session_id", sessionID))
	}

	render.JSON(w, r, map[string]interface{}{
		"status": api.StatusSuccess,
		"data":   api.SessionResponse{},
	})
}

// Status handles GET /status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessions.SessionID(r)
	render.JSON(w, r, map[string]interface{}{
		"status": api.StatusSuccess,
		"data": api.SessionResponse{
			Authenticated: ok,
			HasDataset:    ok && h.dashboard.HasDataset(sessionID),
		},
	})
}

func (h *AuthHandler) decodeLogin(w http.ResponseWriter, r *http.Request) (api.LoginRequest, error) {
	var req api.LoginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			return req, apierrors.InvalidRequestWithError(err)
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxLoginBytes); err != nil && err != http.ErrNotMultipart {
		return req, apierrors.InvalidRequestWithError(err)
	}
	req.Password = r.PostFormValue("password")
	return req, nil
}
