package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"playlistpulse/internal/infrastructure"
	"playlistpulse/pkg/contracts/events"
)

// outbound is a message for one client or for every client of a session.
type outbound struct {
	client    *Client
	sessionID string
	data      []byte
}

// Hub tracks connected clients. Its Run loop is the only goroutine that
// adds or removes clients and the only one that closes a client's send
// channel.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.DashboardMetrics

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64

	quit     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.DashboardMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan outbound, 64),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Run processes registrations and outbound messages until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			if h.metrics != nil {
				h.metrics.WebSocketClients.Add(ctx, 1)
			}
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			h.deliver(client, encode(h.logger, events.NewMessage(events.MessageTypeConnect, "", map[string]string{
				"status":    "connected",
				"client_id": client.id,
			})))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := client.context()
				if h.metrics != nil {
					h.metrics.WebSocketClients.Add(ctx, -1)
				}
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", count))
			}

		case msg := <-h.outbound:
			if msg.client != nil {
				h.deliver(msg.client, msg.data)
				continue
			}
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.sessionID == msg.sessionID {
					targets = append(targets, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range targets {
				h.deliver(client, msg.data)
			}
		}
	}
}

// deliver queues data on a registered client, dropping the client when its
// buffer is full. Must only be called from Run.
func (h *Hub) deliver(client *Client, data []byte) {
	if data == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}

	select {
	case client.send <- data:
		h.messagesSent++
	default:
		h.messagesDropped++
		close(client.send)
		delete(h.clients, client)
		if h.metrics != nil {
			h.metrics.WebSocketClients.Add(context.Background(), -1)
		}
		h.logger.Warn("client send buffer full, disconnecting",
			slog.String("client_id", client.id))
	}
}

// NotifySession sends a message to every client of sessionID.
func (h *Hub) NotifySession(sessionID string, msgType events.MessageType, data interface{}) {
	payload := encode(h.logger, events.NewMessage(msgType, "", data))
	if payload == nil {
		return
	}
	select {
	case h.outbound <- outbound{sessionID: sessionID, data: payload}:
	case <-h.quit:
	}
}

// reply sends a message to a single client.
func (h *Hub) reply(client *Client, msg events.WebSocketMessage) {
	payload := encode(client.logger, msg)
	if payload == nil {
		return
	}
	select {
	case h.outbound <- outbound{client: client, data: payload}:
	case <-h.quit:
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.messagesDropped,
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

func encode(logger *slog.Logger, msg events.WebSocketMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("failed to marshal websocket message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return nil
	}
	return data
}
