// Package events contains the websocket message contracts of the dashboard.
package events

import (
	"time"

	api "playlistpulse/pkg/contracts/api/v1"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeView MessageType = "view"
	MessageTypePing MessageType = "ping"

	// Server to client
	MessageTypeViewResult     MessageType = "view:result"
	MessageTypeDatasetUpdated MessageType = "dataset:updated"
	MessageTypeDatasetCleared MessageType = "dataset:cleared"
	MessageTypePong           MessageType = "pong"

	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is a server to client message.
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// ClientMessage is a client to server message. ID is echoed in the reply.
type ClientMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    MessageType     `json:"type"`
	Payload api.ViewRequest `json:"payload"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// DatasetEvent announces that the session's dataset changed.
type DatasetEvent struct {
	Fingerprint string   `json:"fingerprint,omitempty"`
	Records     int      `json:"records"`
	Artists     []string `json:"artists,omitempty"`
}

// NewMessage creates a server message stamped with the current time.
func NewMessage(msgType MessageType, id string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{ID: id, Type: msgType, Timestamp: time.Now().UTC()},
		Data:        data,
	}
}

// NewErrorMessage creates an error message replying to id.
func NewErrorMessage(id, code, message string, details interface{}) WebSocketMessage {
	return NewMessage(MessageTypeError, id, ErrorData{Code: code, Message: message, Details: details})
}
