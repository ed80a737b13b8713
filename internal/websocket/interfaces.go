package websocket

import (
	"context"
	"net"
	"time"

	"playlistpulse/pkg/contracts/domain"
)

// Connection is the part of a gorilla websocket connection the pumps use.
// *websocket.Conn satisfies it; tests substitute fakes.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() net.Addr
}

// ViewService computes views for a session.
type ViewService interface {
	View(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection) (*domain.ViewResult, error)
}

// RequestValidator validates decoded client payloads.
type RequestValidator interface {
	ValidateStruct(v interface{}) error
}
