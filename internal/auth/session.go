package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session_id"

	// SessionTTL is the duration for which a session is valid (24 hours).
	SessionTTL = 24 * time.Hour

	bearerPrefix = "Bearer "
)

// SessionManager handles session creation, validation, and destruction.
type SessionManager struct {
	store        Store
	now          func() time.Time
	secureCookie bool
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock overrides the clock used for expiry.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(sm *SessionManager) {
		sm.now = now
	}
}

// WithSecureCookie sets the Secure attribute on session cookies.
func WithSecureCookie(secure bool) SessionOption {
	return func(sm *SessionManager) {
		sm.secureCookie = secure
	}
}

// NewSessionManager creates a new SessionManager backed by store.
func NewSessionManager(store Store, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:        store,
		now:          time.Now,
		secureCookie: true,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// CreateSession creates a new session for the user.
func (sm *SessionManager) CreateSession(ctx context.Context, user *User) (*Session, error) {
	now := sm.now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}

	if err := sm.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession returns the session if it exists and has not expired.
// Expired sessions are removed.
func (sm *SessionManager) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrInvalidSession
	}

	session, err := sm.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// DynamoDB TTL deletion lags, so expiry is checked here too.
	if session.Expired(sm.now()) {
		_ = sm.store.DeleteSession(ctx, sessionID)
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// DestroySession removes a session. Unknown ids are not an error.
func (sm *SessionManager) DestroySession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return sm.store.DeleteSession(ctx, sessionID)
}

// SessionIDFromRequest extracts the session id from the Authorization
// bearer header or, failing that, the session cookie. bearer reports which
// one was used.
func SessionIDFromRequest(c *fiber.Ctx) (id string, bearer bool) {
	if h := c.Get(fiber.HeaderAuthorization); len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):]), true
	}
	return c.Cookies(SessionCookieName), false
}

// SetSessionCookie sets the session cookie on the response.
func (sm *SessionManager) SetSessionCookie(c *fiber.Ctx, session *Session) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		Secure:   sm.secureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearSessionCookie removes the session cookie from the response.
func (sm *SessionManager) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  sm.now().Add(-time.Hour),
		Secure:   sm.secureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
