package http

import (
	"context"

	"playlistpulse/internal/exporter"
	"playlistpulse/internal/services"
	"playlistpulse/pkg/contracts/domain"
	"playlistpulse/pkg/contracts/events"
)

// DashboardServiceInterface defines the dashboard operations the HTTP layer needs
type DashboardServiceInterface interface {
	Upload(ctx context.Context, sessionID string, uploads []domain.Upload) (*services.UploadResult, error)
	View(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection) (*domain.ViewResult, error)
	Export(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection, format exporter.Format) (*services.ExportFile, error)
	Invalidate(ctx context.Context, sessionID string)
	HasDataset(sessionID string) bool
}

// SessionNotifier pushes events to the websocket clients of a session.
type SessionNotifier interface {
	NotifySession(sessionID string, msgType events.MessageType, data interface{})
}
