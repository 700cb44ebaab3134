package middleware

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/api/handlers"
)

const localLogger = "logger"

// LogEntry is the who/what/why/where record written for each request.
type LogEntry struct {
	Who       string
	What      string
	Why       string
	Where     string
	Method    string
	Path      string
	Status    int
	Latency   time.Duration
	IP        string
	UserAgent string
}

func (e LogEntry) keysAndValues() []any {
	return []any{
		"who", e.Who,
		"what", e.What,
		"why", e.Why,
		"where", e.Where,
		"method", e.Method,
		"path", e.Path,
		"status", e.Status,
		"latency", e.Latency.String(),
		"ip", e.IP,
		"user_agent", e.UserAgent,
	}
}

// Logging writes one structured entry per request.
func Logging(log logr.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(localLogger, log)

		// Process request
		err := c.Next()
		if err != nil {
			// Let the app's error handler set the status before logging.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		entry := LogEntry{
			Who:       who(c),
			Where:     "zone-manager:http",
			Method:    c.Method(),
			Path:      c.Path(),
			Status:    c.Response().StatusCode(),
			Latency:   time.Since(start),
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		}
		entry.What, entry.Why = classify(c.Method(), c.Route().Path, entry.Status)

		log.Info("request", entry.keysAndValues()...)
		return err
	}
}

func who(c *fiber.Ctx) string {
	if email, ok := c.Locals(handlers.LocalEmail).(string); ok && email != "" {
		return "user:" + email
	}
	return "anonymous"
}

// classify determines what happened for the log entry.
func classify(method, route string, status int) (what, why string) {
	switch {
	case status >= 500:
		what, why = "server_error", "internal server error occurred"
	case status >= 400:
		what, why = "client_error", "client request failed"
	default:
		what, why = "request_completed", "successful request"
	}

	success := status < 400
	switch {
	case (route == "/login" || route == "/") && method == fiber.MethodPost:
		if success {
			return "login_success", "user authenticated successfully"
		}
		return "login_failed", "authentication failed"
	case route == "/logout":
		return "logout", "user logged out"
	case route == "/route53/create-hosted-zone":
		if success {
			return "zone_created", "hosted zone created"
		}
		return "zone_create_failed", "hosted zone creation failed"
	case route == "/route53/delete-hosted-zone/:domainName":
		if success {
			return "zone_deleted", "hosted zone deleted"
		}
		return "zone_delete_failed", "hosted zone deletion failed"
	case route == "/route53/add-record", route == "/route53/delete-record", route == "/route53/edit-record":
		if success {
			return "record_changed", "change batch submitted"
		}
		return "record_change_failed", "change batch not submitted"
	}
	return what, why
}

// LogAction logs a single event from inside a handler or middleware using
// the request logger.
func LogAction(c *fiber.Ctx, what, why, where string) {
	log, ok := c.Locals(localLogger).(logr.Logger)
	if !ok {
		return
	}
	log.Info("action",
		"who", who(c),
		"what", what,
		"why", why,
		"where", where,
		"method", c.Method(),
		"path", c.Path(),
		"ip", c.IP(),
	)
}
