package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
)

const (
	isAuthKey       = "is_authenticated"
	sessionIDKey    = "session_id"
	authenticatedAt = "authenticated_at"
)

// SessionManager encapsulates the cookie store and session configuration.
type SessionManager struct {
	store  *sessions.CookieStore
	logger *slog.Logger
	name   string
}

// NewSessionManager creates a cookie backed session manager. Without a
// configured key a random one is generated, so sessions do not survive a
// restart.
func NewSessionManager(cfg config.SecurityConfig, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "session_manager"))

	key := []byte(cfg.SessionKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("no session key configured; generated an ephemeral key")
	} else if len(key) < 32 {
		logger.Warn("session key is weak; 32+ random chars recommended", slog.Int("length", len(key)))
	}

	name := cfg.SessionName
	if name == "" {
		name = config.DefaultSessionName
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)

	logger.Info("session manager initialized",
		slog.Bool("secure", cfg.CookieSecure),
		slog.String("name", name))

	return &SessionManager{store: store, logger: logger, name: name}
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string {
	return sm.name
}

// CreateSession marks the request's session as authenticated and returns
// its new session id.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		// Create new session if can't get existing
		sess, _ = sm.store.New(r, sm.name)
	}

	id := uuid.NewString()
	sess.Values[isAuthKey] = true
	sess.Values[sessionIDKey] = id
	sess.Values[authenticatedAt] = time.Now().UTC().Unix()

	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// SessionID returns the id of an authenticated session.
func (sm *SessionManager) SessionID(r *http.Request) (string, bool) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logSessionError(r, err)
		return "", false
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return "", false
	}
	id, _ := sess.Values[sessionIDKey].(string)
	return id, id != ""
}

// DestroySession clears the session cookie and returns the id it held.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) string {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return ""
	}

	id, _ := sess.Values[sessionIDKey].(string)
	sess.Values[isAuthKey] = false
	delete(sess.Values, sessionIDKey)
	delete(sess.Values, authenticatedAt)

	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("failed to clear session", slog.String("error", err.Error()))
	}
	return id
}

// RequireAuth rejects requests without an authenticated session and puts the
// session id of the others on the request context.
func (sm *SessionManager) RequireAuth(errorHandler *apierrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sm.SessionID(r)
			if !ok {
				errorHandler.HandleError(w, r, apierrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(infrastructure.WithSessionID(r.Context(), id)))
		})
	}
}

// SessionIDFromRequest returns the session id placed by RequireAuth.
func SessionIDFromRequest(r *http.Request) string {
	return infrastructure.GetSessionID(r.Context())
}

func (sm *SessionManager) logSessionError(r *http.Request, err error) {
	category := "unknown"
	if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "expired timestamp"):
			category = "expired"
		case strings.Contains(msg, "mac") || strings.Contains(msg, "hash"):
			category = "mac_invalid"
		default:
			category = "decode_failed"
		}
	}
	sm.logger.Debug("session cookie rejected",
		slog.String("category", category),
		slog.String("path", r.URL.Path))
}
