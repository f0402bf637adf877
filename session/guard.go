// Package session holds the single-session bearer token guard for the
// station-mode HTTP API.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"doorbell-core/metrics"
)

const (
	tokenBytes = 16

	MaxTokenLength    = 64
	MaxUsernameLength = 31
	MaxRoleLength     = 15
)

type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is the one active login. A zero ExpiresAt means it never expires.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

type Options struct {
	Verifier Verifier
	Limiter  Limiter
	// TTL of a session; 0 disables expiry.
	TTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Guard owns the session slot. All methods are safe for concurrent use.
type Guard struct {
	verifier Verifier
	limiter  Limiter
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	current *Session
}

func NewGuard(opts Options) *Guard {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{
		verifier: opts.Verifier,
		limiter:  opts.Limiter,
		ttl:      opts.TTL,
		now:      now,
		logger:   slog.Default().With("component", "session"),
	}
}

// Allow charges one login attempt against the rate limit window. It is
// exposed so the HTTP layer can reject before reading the request body.
func (g *Guard) Allow(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	ok, err := g.limiter.Allow(ctx)
	if err != nil {
		// Limiter backend failures fail open.
		g.logger.Warn("login limiter unavailable", slog.String("err", err.Error()))
		return nil
	}
	if !ok {
		metrics.LoginAttempt("rate_limited")
		return ErrRateLimited
	}
	return nil
}

// Login charges a rate limit attempt, then authenticates.
func (g *Guard) Login(ctx context.Context, username, password string) (Session, error) {
	if err := g.Allow(ctx); err != nil {
		return Session{}, err
	}
	return g.Authenticate(ctx, username, password)
}

// Authenticate verifies the credentials and replaces any existing session
// without touching the rate limit window.
func (g *Guard) Authenticate(ctx context.Context, username, password string) (Session, error) {
	user, err := g.verifier.Verify(ctx, username, password)
	if err != nil {
		metrics.LoginAttempt("invalid")
		g.logger.Info("login rejected", slog.String("username", username))
		return Session{}, err
	}

	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generating token: %w", err)
	}

	s := Session{Token: token, User: user}
	if g.ttl > 0 {
		s.ExpiresAt = g.now().Add(g.ttl)
	}

	g.mu.Lock()
	g.current = &s
	g.mu.Unlock()

	metrics.LoginAttempt("success")
	g.logger.Info("login succeeded", slog.String("username", user.Username), slog.String("role", user.Role))
	return s, nil
}

// Authorize checks token against the active session. An empty token means
// the Authorization header was missing or malformed.
func (g *Guard) Authorize(token string) (User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorizeLocked(token)
}

func (g *Guard) authorizeLocked(token string) (User, error) {
	if g.current == nil {
		return User{}, ErrNotLoggedIn
	}
	if !g.current.ExpiresAt.IsZero() && !g.now().Before(g.current.ExpiresAt) {
		g.current = nil
		return User{}, ErrNotLoggedIn
	}
	if token == "" {
		return User{}, ErrMissingToken
	}
	if token != g.current.Token {
		return User{}, ErrInvalidToken
	}
	return g.current.User, nil
}

// Logout clears the session if token is the active one.
func (g *Guard) Logout(token string) (User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	user, err := g.authorizeLocked(token)
	if err != nil {
		return User{}, err
	}
	g.current = nil
	g.logger.Info("logged out", slog.String("username", user.Username))
	return user, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
