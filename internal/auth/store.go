package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrUserNotFound indicates no user is registered under the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates a user with the same email already exists.
	ErrUserExists = errors.New("user already exists")

	// ErrSessionNotFound indicates the session does not exist or has expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSession indicates the session id is malformed or empty.
	ErrInvalidSession = errors.New("invalid session")
)

// User is a registered operator allowed to manage zones.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an authenticated login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists users, sessions and rate-limit counters.
type Store interface {
	// CreateUser stores a new user. It returns ErrUserExists when the
	// email is already registered.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByEmail returns ErrUserNotFound when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateSession(ctx context.Context, session *Session) error
	// GetSession returns ErrSessionNotFound for unknown ids. Expiry is
	// checked by the caller.
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// IncrementRateLimit counts one hit against key in a fixed window and
	// returns the count so far and whether it exceeds limit.
	IncrementRateLimit(ctx context.Context, key string, limit int, window time.Duration) (int, bool, error)
}

// NormalizeEmail lowercases and trims an email address. Emails are stored
// and looked up in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
