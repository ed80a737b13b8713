package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"playlistpulse/internal/config"
	apierrors "playlistpulse/internal/errors"
	"playlistpulse/internal/infrastructure"
)

// ErrNoSecret is returned when neither a password nor a hash is configured.
var ErrNoSecret = errors.New("no password or password hash configured")

// Authenticator checks a submitted password against the shared secret.
type Authenticator struct {
	password []byte
	hash     []byte
	logger   *slog.Logger
	metrics  *infrastructure.DashboardMetrics
}

// NewAuthenticator creates an authenticator. A configured hash takes
// precedence over a plain password.
func NewAuthenticator(cfg config.SecurityConfig, logger *slog.Logger, metrics *infrastructure.DashboardMetrics) (*Authenticator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{
		logger:  logger.With(slog.String("component", "authenticator")),
		metrics: metrics,
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid password hash: %w", err)
		}
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		a.password = []byte(cfg.Password)
	default:
		return nil, ErrNoSecret
	}
	return a, nil
}

// Check returns nil when password matches the shared secret and an
// AUTH_FAILURE error otherwise.
func (a *Authenticator) Check(ctx context.Context, password string) error {
	ok := a.matches(password)
	a.metrics.RecordAuth(ctx, ok)
	if !ok {
		a.logger.WarnContext(ctx, "incorrect password")
		return apierrors.NewAuthFailureError()
	}
	return nil
}

func (a *Authenticator) matches(password string) bool {
	if a.hash != nil {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare(a.password, []byte(password)) == 1
}

// HashPassword returns a bcrypt hash suitable for PasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoSecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
