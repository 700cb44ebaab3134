package api

import (
	"errors"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dns-automate/zone-manager/internal/api/handlers"
	"github.com/dns-automate/zone-manager/internal/api/middleware"
	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/service"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Zone   *handlers.ZoneHandler
	Record *handlers.RecordHandler
}

// Middleware contains the middleware that needs per-app configuration.
type Middleware struct {
	RequireAuth    fiber.Handler
	CSRF           fiber.Handler
	LoginRateLimit fiber.Handler
}

// Options configures NewApp.
type Options struct {
	CORSOrigins     []string
	CookieSecure    bool
	LoginRateLimit  int
	LoginRateWindow time.Duration
	ProxyHeader     string // client IP header set by a fronting proxy, e.g. X-Forwarded-For
}

// NewApp builds the Fiber app serving the zone manager API.
func NewApp(zones *service.ZoneService, authService *service.AuthService, store auth.Store, log logr.Logger, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "zone-manager",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
		ProxyHeader:           opts.ProxyHeader,
	})

	app.Use(middleware.Logging(log.WithName("http")))
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(corsHandler(opts.CORSOrigins))

	h := Handlers{
		Auth:   handlers.NewAuthHandler(authService, log.WithName("auth")),
		Zone:   handlers.NewZoneHandler(zones, log.WithName("zones")),
		Record: handlers.NewRecordHandler(zones, log.WithName("records")),
	}
	m := Middleware{
		RequireAuth:    middleware.RequireAuth(authService),
		CSRF:           middleware.CSRFProtection(opts.CookieSecure),
		LoginRateLimit: middleware.LoginRateLimit(store, opts.LoginRateLimit, opts.LoginRateWindow),
	}
	SetupRoutes(app, h, m)

	return app
}

// SetupRoutes configures all routes for the application.
func SetupRoutes(app *fiber.App, h Handlers, m Middleware) {
	// Public routes
	app.Get("/healthz", handlers.Health)
	app.Post("/login", m.LoginRateLimit, h.Auth.PostLogin)
	app.Post("/", m.LoginRateLimit, h.Auth.PostLogin)
	app.Post("/logout", h.Auth.PostLogout)

	// Protected routes
	app.Get("/me", m.RequireAuth, h.Auth.GetMe)

	r53 := app.Group("/route53", m.RequireAuth, m.CSRF)
	r53.Post("/create-hosted-zone", h.Zone.CreateHostedZone)
	r53.Delete("/delete-hosted-zone/:domainName", h.Zone.DeleteHostedZone)
	r53.Get("/hosted-zones", h.Zone.ListHostedZones)
	r53.Get("/hosted-zones/:domainName", h.Zone.GetHostedZone)
	r53.Get("/hosted-zones/:domainName/records", h.Zone.ListRecords)
	r53.Post("/add-record", h.Record.AddRecord)
	r53.Post("/delete-record", h.Record.DeleteRecord)
	r53.Post("/edit-record", h.Record.EditRecord)
}

func corsHandler(origins []string) fiber.Handler {
	allow := strings.Join(origins, ",")
	if allow == "" {
		allow = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:     allow,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.CSRFHeaderName,
		ExposeHeaders:    middleware.CSRFHeaderName,
		AllowCredentials: allow != "*",
	})
}

// errorHandler renders unhandled errors in the API's JSON shape.
func errorHandler(log logr.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Server error"
		detail := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
			detail = ""
		} else {
			log.Error(err, "unhandled error", "method", c.Method(), "path", c.Path())
		}

		body := fiber.Map{"message": message}
		if detail != "" {
			body["error"] = detail
		}
		return c.Status(code).JSON(body)
	}
}
