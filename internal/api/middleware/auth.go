package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/api/handlers"
	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/service"
)

const localBearer = "auth_bearer"

// RequireAuth returns a middleware that checks for a valid session, taken
// from the Authorization bearer header or the session cookie. On success it
// stores the session and email in c.Locals.
func RequireAuth(authService *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, bearer := auth.SessionIDFromRequest(c)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}

		session, err := authService.ValidateSession(c.UserContext(), sessionID)
		if err != nil {
			if !bearer {
				authService.Sessions().ClearSessionCookie(c)
			}
			if service.Kind(err) != service.KindUnauthorized {
				return err
			}
			LogAction(c, "session_rejected", err.Error(), "middleware:auth")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
				"error":   "invalid or expired session",
			})
		}

		c.Locals(handlers.LocalSession, session)
		c.Locals(handlers.LocalEmail, session.Email)
		c.Locals(localBearer, bearer)

		return c.Next()
	}
}
