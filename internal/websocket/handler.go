package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
)

// Handler upgrades authenticated requests to websocket clients.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	views          ViewService
	validator      RequestValidator
	cfg            config.WebSocketConfig
	allowedOrigins []string
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
}

// NewHandler creates the upgrade handler. It must be mounted behind the
// session gate, which puts the session id on the request context.
func NewHandler(hub *Hub, views ViewService, validator RequestValidator, cfg config.WebSocketConfig, allowedOrigins []string, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:            hub,
		views:          views,
		validator:      validator,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		errorHandler:   errorHandler,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// ServeHTTP upgrades the connection and starts the client's pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := infrastructure.GetSessionID(r.Context())
	if sessionID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	client := NewClient(h.hub, conn, sessionID, middleware.GetReqID(r.Context()),
		h.views, h.validator, h.cfg, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// checkOrigin accepts same-host requests and configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
	return false
}
