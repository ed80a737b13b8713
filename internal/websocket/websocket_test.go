package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
	"playlistpulse/internal/middleware"
	"playlistpulse/internal/services"
	"playlistpulse/pkg/contracts/domain"
	"playlistpulse/pkg/contracts/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockViewService struct {
	mock.Mock
}

func (m *mockViewService) View(ctx context.Context, sessionID string, filter domain.FilterState, sel domain.ViewSelection) (*domain.ViewResult, error) {
	args := m.Called(ctx, sessionID, filter, sel)
	if v := args.Get(0); v != nil {
		return v.(*domain.ViewResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type received struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type testServer struct {
	hub    *Hub
	server *httptest.Server
	views  *mockViewService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := testLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)

	hub := NewHub(logger, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	views := &mockViewService{}
	handler := NewHandler(hub, views, middleware.NewValidationMiddleware(logger, errorHandler),
		config.Default().WebSocket, nil, errorHandler, logger)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sid := r.URL.Query().Get("session"); sid != "" {
			r = r.WithContext(infrastructure.WithSessionID(r.Context(), sid))
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	return &testServer{hub: hub, server: server, views: views}
}

func (ts *testServer) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	connected := readMessage(t, conn)
	require.Equal(t, string(events.MessageTypeConnect), connected.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHandler_View(t *testing.T) {
	ts := newTestServer(t)
	result := &domain.ViewResult{
		Status:    domain.ViewStatusOK,
		Selection: domain.ViewSelection{Kind: domain.ViewTopByListeners, TopN: 10},
		Summary:   domain.Summary{Records: 2, TotalStreams: 300, TotalListeners: 70},
	}
	ts.views.On("View", mock.Anything, "s1",
		domain.FilterState{Artist: "X"},
		domain.ViewSelection{Kind: domain.ViewTopByListeners, TopN: 10}).Return(result, nil)

	conn := ts.dial(t, "s1")
	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "req-1",
		"type":    "view",
		"payload": map[string]any{"view": "top_listeners", "top_n": 10, "artist": "X"},
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, string(events.MessageTypeViewResult), msg.Type)
	assert.Equal(t, "req-1", msg.ID)

	var view domain.ViewResult
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	assert.Equal(t, int64(300), view.Summary.TotalStreams)
	ts.views.AssertExpectations(t)
}

func TestHandler_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.views.On("View", mock.Anything, "s1", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidTopN)
	conn := ts.dial(t, "s1")

	tests := []struct {
		name     string
		message  any
		wantCode string
	}{
		{"invalid json", "not json", "INVALID_REQUEST"},
		{"unknown type", map[string]any{"type": "subscribe"}, "VALIDATION_FAILED"},
		{"invalid view", map[string]any{"type": "view", "payload": map[string]any{"view": "pie"}}, "VALIDATION_FAILED"},
		{"start after end", map[string]any{"type": "view", "payload": map[string]any{"start": "2024-02-01", "end": "2024-01-01"}}, "VALIDATION_FAILED"},
		{"service error", map[string]any{"type": "view", "payload": map[string]any{"top_n": 7}}, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s, ok := tt.message.(string); ok {
				require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(s)))
			} else {
				require.NoError(t, conn.WriteJSON(tt.message))
			}

			msg := readMessage(t, conn)
			require.Equal(t, string(events.MessageTypeError), msg.Type)
			var data events.ErrorData
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			assert.Equal(t, tt.wantCode, data.Code)
		})
	}
}

func TestHandler_Ping(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "s1")

	require.NoError(t, conn.WriteJSON(map[string]any{"id": "p", "type": "ping"}))
	msg := readMessage(t, conn)
	assert.Equal(t, string(events.MessageTypePong), msg.Type)
	assert.Equal(t, "p", msg.ID)
}

func TestHub_NotifySession(t *testing.T) {
	ts := newTestServer(t)
	first := ts.dial(t, "s1")
	ts.dial(t, "s2")

	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	ts.hub.NotifySession("s1", events.MessageTypeDatasetUpdated, events.DatasetEvent{Records: 2})

	msg := readMessage(t, first)
	assert.Equal(t, string(events.MessageTypeDatasetUpdated), msg.Type)

	var event events.DatasetEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, 2, event.Records)

	first.Close()
	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 2, ts.hub.GetHubMetrics()["total_connections"])
}

func TestHandler_RequiresSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws?session=s1"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
