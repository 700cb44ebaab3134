package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// MinPasswordLength is the shortest password CreateUser accepts.
const MinPasswordLength = 8

// bcrypt only reads the first 72 bytes.
const maxPasswordBytes = 72

// AuthService handles authentication logic.
type AuthService struct {
	store      auth.Store
	sessions   *auth.SessionManager
	log        logr.Logger
	bcryptCost int
	now        func() time.Time

	// dummyHash is compared against when the email is unknown so a login
	// attempt costs one bcrypt comparison either way.
	dummyHash string
}

// AuthOption configures an AuthService.
type AuthOption func(*AuthService)

// WithBcryptCost sets the bcrypt cost for new password hashes.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.bcryptCost = cost
	}
}

// NewAuthService creates a new auth service.
func NewAuthService(store auth.Store, sessions *auth.SessionManager, log logr.Logger, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		store:      store,
		sessions:   sessions,
		log:        log,
		bcryptCost: auth.DefaultBcryptCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	hash, err := auth.HashPassword(uuid.NewString(), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	s.dummyHash = hash
	return s, nil
}

// Sessions returns the session manager used for cookies.
func (s *AuthService) Sessions() *auth.SessionManager {
	return s.sessions
}

// LoginResult represents a successful login.
type LoginResult struct {
	User    *auth.User
	Session *auth.Session
}

// Login verifies the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		_ = auth.CheckPassword(s.dummyHash, password)
		s.log.V(1).Info("login rejected", "email", email, "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, fmt.Errorf("failed to verify password: %w", err)
		}
		s.log.V(1).Info("login rejected", "email", email, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.CreateSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.Info("login succeeded", "email", email, "userID", user.ID)
	return &LoginResult{User: user, Session: session}, nil
}

// Logout removes the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DestroySession(ctx, sessionID)
}

// ValidateSession returns the live session for sessionID.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	return s.sessions.ValidateSession(ctx, sessionID)
}

// CurrentUser returns the user owning the session.
func (s *AuthService) CurrentUser(ctx context.Context, session *auth.Session) (*auth.User, error) {
	user, err := s.store.GetUserByEmail(ctx, session.Email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil, auth.ErrSessionNotFound
	}
	return user, err
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (s *AuthService) CreateUser(ctx context.Context, email, username, password string) (*auth.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return nil, invalid("email", "%q is not a valid email address", email)
	}
	if len(password) < MinPasswordLength {
		return nil, invalid("password", "must be at least %d characters", MinPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return nil, invalid("password", "must be at most %d bytes", maxPasswordBytes)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = strings.SplitN(addr.Address, "@", 2)[0]
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		ID:           uuid.NewString(),
		Email:        auth.NormalizeEmail(addr.Address),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	s.log.Info("user created", "email", user.Email, "userID", user.ID)
	return user, nil
}
