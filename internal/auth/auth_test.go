package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/shared/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticator_Check(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		cfg      config.SecurityConfig
		password string
		wantErr  bool
	}{
		{"plain match", config.SecurityConfig{Password: "s3cret"}, "s3cret", false},
		{"plain mismatch", config.SecurityConfig{Password: "s3cret"}, "S3cret", true},
		{"plain empty", config.SecurityConfig{Password: "s3cret"}, "", true},
		{"hash match", config.SecurityConfig{PasswordHash: hash}, "s3cret", false},
		{"hash mismatch", config.SecurityConfig{PasswordHash: hash}, "nope", true},
		{"hash wins over plain", config.SecurityConfig{Password: "other", PasswordHash: hash}, "other", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAuthenticator(tt.cfg, testLogger(), nil)
			require.NoError(t, err)

			err = a.Check(context.Background(), tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apierrors.IsType(err, apierrors.ErrTypeAuthFailure))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthenticator_LogsFailure(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	a, err := NewAuthenticator(config.SecurityConfig{Password: "s3cret"}, logger, nil)
	require.NoError(t, err)

	require.Error(t, a.Check(context.Background(), "guess"))
	record := testutil.AssertLogContains(t, handler, slog.LevelWarn, "incorrect password")
	assert.NotContains(t, record.Attrs, "password")
}

func TestNewAuthenticator_Errors(t *testing.T) {
	_, err := NewAuthenticator(config.SecurityConfig{}, testLogger(), nil)
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = NewAuthenticator(config.SecurityConfig{PasswordHash: "not-bcrypt"}, testLogger(), nil)
	assert.Error(t, err)

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func newTestManager() *SessionManager {
	return NewSessionManager(config.SecurityConfig{
		SessionKey:    "0123456789abcdef0123456789abcdef",
		SessionName:   "test_session",
		SessionMaxAge: time.Hour,
	}, testLogger())
}

// login creates a session and returns its cookies.
func login(t *testing.T, sm *SessionManager) (string, []*http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	id, err := sm.CreateSession(rec, req)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id, rec.Result().Cookies()
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestSessionManager_Lifecycle(t *testing.T) {
	sm := newTestManager()
	assert.Equal(t, "test_session", sm.SessionName())

	id, cookies := login(t, sm)
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	got, ok := sm.SessionID(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies))
	require.True(t, ok)
	assert.Equal(t, id, got)

	rec := httptest.NewRecorder()
	destroyed := sm.DestroySession(rec, withCookies(httptest.NewRequest(http.MethodPost, "/", nil), cookies))
	assert.Equal(t, id, destroyed)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.True(t, cleared[0].MaxAge < 0)

	_, ok = sm.SessionID(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cleared))
	assert.False(t, ok)
}

func TestSessionManager_RejectsForeignCookie(t *testing.T) {
	_, cookies := login(t, newTestManager())

	other := NewSessionManager(config.SecurityConfig{SessionName: "test_session", SessionMaxAge: time.Hour}, testLogger())
	_, ok := other.SessionID(withCookies(httptest.NewRequest(http.MethodGet, "/", nil), cookies))
	assert.False(t, ok)
}

func TestSessionManager_RequireAuth(t *testing.T) {
	sm := newTestManager()
	errorHandler := apierrors.NewErrorHandler(testLogger(), false)

	var seen string
	handler := sm.RequireAuth(errorHandler)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/view", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "UNAUTHORIZED", body["error_code"])
	})

	t.Run("authenticated", func(t *testing.T) {
		id, cookies := login(t, sm)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withCookies(httptest.NewRequest(http.MethodGet, "/api/dashboard/view", nil), cookies))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, id, seen)
	})
}
