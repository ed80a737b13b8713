package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/internal/services"
	"playlistpulse/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to compute one view
	viewTimeout = 30 * time.Second

	sendBufferSize = 32
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	sessionID   string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	views     ViewService
	validator RequestValidator
	cfg       config.WebSocketConfig
	logger    *slog.Logger

	messagesSent     int64
	messagesReceived int64
}

// NewClient creates a client for sessionID on conn.
func NewClient(hub *Hub, conn Connection, sessionID, traceID string, views ViewService, validator RequestValidator, cfg config.WebSocketConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}

	id := uuid.NewString()
	remoteAddr := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remoteAddr = addr.String()
	}

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		sessionID:   sessionID,
		traceID:     traceID,
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		views:       views,
		validator:   validator,
		cfg:         cfg,
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("session_id", sessionID)),
	}
}

// context returns a context carrying the client's trace and session ids.
// The upgrade request's context ends with the handler, so the pumps use
// their own.
func (c *Client) context() context.Context {
	ctx := infrastructure.WithSessionID(context.Background(), c.sessionID)
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return infrastructure.EnsureTraceID(ctx)
}

// ReadPump reads client messages until the connection fails.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.logger.InfoContext(ctx, "websocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(ctx, "unexpected websocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++
		c.handleMessage(ctx, message)
	}
}

// handleMessage answers one client message.
func (c *Client) handleMessage(ctx context.Context, raw []byte) {
	var msg events.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.replyError("", apierrors.InvalidRequestWithError(err))
		return
	}

	switch msg.Type {
	case events.MessageTypePing:
		c.hub.reply(c, events.NewMessage(events.MessageTypePong, msg.ID, nil))

	case events.MessageTypeView:
		if err := c.validator.ValidateStruct(msg.Payload); err != nil {
			c.replyError(msg.ID, err)
			return
		}
		filter, err := msg.Payload.Filter()
		if err != nil {
			c.replyError(msg.ID, apierrors.ErrValidation("date", err.Error()))
			return
		}

		viewCtx, cancel := context.WithTimeout(ctx, viewTimeout)
		defer cancel()
		result, err := c.views.View(viewCtx, c.sessionID, filter, msg.Payload.Selection())
		if err != nil {
			c.replyError(msg.ID, services.ToAPIError(err))
			return
		}

		c.logger.DebugContext(ctx, "view computed",
			slog.String("view", string(result.Selection.Kind)),
			slog.String("status", string(result.Status)))
		c.hub.reply(c, events.NewMessage(events.MessageTypeViewResult, msg.ID, result))

	default:
		c.replyError(msg.ID, apierrors.ErrValidation("type", "unknown message type "+string(msg.Type)))
	}
}

func (c *Client) replyError(id string, err error) {
	code, message := "INTERNAL_SERVER_ERROR", "internal error"
	var details interface{}

	var apiErr *apierrors.APIError
	var appErr *apierrors.AppError
	switch {
	case errors.As(err, &apiErr):
		code, message, details = apiErr.ErrorCode, apiErr.Message, apiErr.Details
	case errors.As(err, &appErr):
		code, message = string(appErr.Type), appErr.Message
	default:
		c.logger.ErrorContext(c.context(), "websocket request failed",
			slog.String("error", err.Error()))
	}

	c.hub.reply(c, events.NewErrorMessage(id, code, message, details))
}

// WritePump writes queued messages and keepalive pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.context(), "websocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.context(), "websocket write failed",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent++

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
