package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/services"
	"playlistpulse/pkg/contracts"
)

var testVersion = contracts.VersionInfo{Version: "1.0.0-test", GoVersion: "go1.23", APIVersion: "v1"}

type stubCache struct{}

func (stubCache) CacheStats() map[string]interface{} {
	return map[string]interface{}{"entries": 1}
}

type stubCounter int

func (c stubCounter) ClientCount() int { return int(c) }

func TestHealthHandler_Routes(t *testing.T) {
	service := services.NewHealthService(testVersion, stubCache{}, stubCounter(2), testLogger())
	router := chi.NewRouter()
	router.Mount("/api/health", NewHealthHandler(service, testLogger()).Routes())

	tests := []struct {
		path     string
		wantKeys []string
	}{
		{"/api/health", []string{"status", "version", "timestamp"}},
		{"/api/health/ready", []string{"status", "services"}},
		{"/api/health/live", []string{"status"}},
		{"/api/health/version", []string{"version", "go_version", "api_version", "uptime_seconds"}},
		{"/api/health/stats", []string{"dataset_cache", "websocket_clients"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for _, key := range tt.wantKeys {
				assert.Contains(t, body, key)
			}
		})
	}
}

func TestHealthHandler_NotReady(t *testing.T) {
	service := services.NewHealthService(testVersion, nil, nil, testLogger())
	handler := NewHealthHandler(service, testLogger())

	rec := httptest.NewRecorder()
	handler.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestMetricsHandler(t *testing.T) {
	scrape := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte("# HELP playlist_uploads_total Uploads\n"))
	})
	stats := func() map[string]interface{} { return map[string]interface{}{"websocket_clients": 3} }

	router := chi.NewRouter()
	router.Mount("/metrics", NewMetricsHandler(scrape, stats).Routes())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# HELP"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "websocket_clients")

	disabled := NewMetricsHandler(nil, nil)
	rec = httptest.NewRecorder()
	disabled.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientLogHandler(t *testing.T) {
	logger := testLogger()
	handler := NewClientLogHandler(logger, apierrors.NewErrorHandler(logger, false))

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid entry", `{"level":"error","message":"chart failed to load","source":"dashboard.js"}`, http.StatusOK},
		{"unknown level", `{"level":"fatal","message":"x"}`, http.StatusOK},
		{"missing message", `{"level":"info"}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/client-log", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.Handle(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
