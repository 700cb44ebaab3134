package handlers

import (
	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/service"
)

// Locals keys set by the auth middleware.
const (
	LocalSession = "session"
	LocalEmail   = "email"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	authService *service.AuthService
	log         logr.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, log logr.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostLogin verifies credentials and sets the session cookie. The session
// id is also returned for clients that send it as a bearer token.
func (h *AuthHandler) PostLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, fiber.StatusBadRequest, "Email and password are required", "")
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if service.Kind(err) == service.KindUnauthorized {
			return fail(c, fiber.StatusUnauthorized, "Invalid email or password", "")
		}
		h.log.Error(err, "login failed")
		return fail(c, fiber.StatusInternalServerError, "Server error", "internal server error")
	}

	c.Locals(LocalEmail, result.User.Email)
	h.authService.Sessions().SetSessionCookie(c, result.Session)

	return c.JSON(fiber.Map{
		"message":   "Login successful",
		"user":      result.User,
		"sessionId": result.Session.ID,
		"expiresAt": result.Session.ExpiresAt,
	})
}

// PostLogout removes the session and clears the cookie.
func (h *AuthHandler) PostLogout(c *fiber.Ctx) error {
	if sessionID, _ := auth.SessionIDFromRequest(c); sessionID != "" {
		if err := h.authService.Logout(c.UserContext(), sessionID); err != nil {
			h.log.Error(err, "failed to delete session")
		}
	}
	h.authService.Sessions().ClearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	session, found := c.Locals(LocalSession).(*auth.Session)
	if !found {
		return fail(c, fiber.StatusUnauthorized, "Authentication required", "")
	}

	user, err := h.authService.CurrentUser(c.UserContext(), session)
	if err != nil {
		return serviceError(c, h.log, "Error fetching user", err)
	}
	return c.JSON(fiber.Map{"user": user, "expiresAt": session.ExpiresAt})
}

// Health handles GET /healthz.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
