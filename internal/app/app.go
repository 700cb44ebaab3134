// Package app assembles the zone manager from its configuration: logger,
// credential store, Route 53 client, services and the HTTP app.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/api"
	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/config"
	"github.com/dns-automate/zone-manager/internal/database"
	"github.com/dns-automate/zone-manager/internal/database/sqlstore"
	"github.com/dns-automate/zone-manager/internal/logging"
	"github.com/dns-automate/zone-manager/internal/route53"
	"github.com/dns-automate/zone-manager/internal/service"
)

// App holds the wired components of a running zone manager.
type App struct {
	Config *config.Config
	Log    logr.Logger
	Store  auth.Store
	Zones  *service.ZoneService
	Auth   *service.AuthService

	proxyHeader string
	closers     []func() error
}

type options struct {
	log         *logr.Logger
	route53API  route53.API
	store       auth.Store
	proxyHeader string
}

// Option customizes New.
type Option func(*options)

// WithLogger uses log instead of building one from the config.
func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = &log }
}

// WithRoute53API uses api instead of an SDK client built from the default
// AWS configuration chain.
func WithRoute53API(api route53.API) Option {
	return func(o *options) { o.route53API = api }
}

// WithStore uses store instead of the configured driver.
func WithStore(store auth.Store) Option {
	return func(o *options) { o.store = store }
}

// WithProxyHeader makes the HTTP app read the client IP from header.
func WithProxyHeader(header string) Option {
	return func(o *options) { o.proxyHeader = header }
}

// New builds an App from cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}

	if o.log != nil {
		a.Log = *o.log
	} else {
		log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return nil, err
		}
		a.Log = log
	}

	store := o.store
	if store == nil {
		var err error
		store, err = a.openStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	a.Store = store

	var provider *route53.Client
	if o.route53API != nil {
		provider = route53.NewClient(o.route53API, a.Log.WithName("route53"))
	} else {
		var err error
		provider, err = route53.NewFromConfig(ctx, route53.Options{
			Region:   cfg.Region,
			Endpoint: cfg.Route53.Endpoint,
		}, a.Log.WithName("route53"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize Route 53 client: %w", err)
		}
	}
	a.Zones = service.NewZoneService(provider, a.Log.WithName("zones"))

	sessions := auth.NewSessionManager(store, auth.WithSecureCookie(cfg.HTTP.CookieSecure))
	authService, err := service.NewAuthService(store, sessions, a.Log.WithName("auth"),
		service.WithBcryptCost(cfg.Auth.BcryptCost))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Auth = authService

	a.proxyHeader = o.proxyHeader
	return a, nil
}

func (a *App) openStore(ctx context.Context) (auth.Store, error) {
	switch a.Config.Store.Driver {
	case config.DriverSQLite:
		s, err := sqlstore.Open(a.Config.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		purged, err := s.PurgeExpiredSessions(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to purge expired sessions: %w", err)
		}
		a.Log.Info("using sqlite store", "path", a.Config.Store.SQLitePath, "purgedSessions", purged)
		return s, nil
	case config.DriverDynamoDB:
		c, err := database.New(ctx, a.Config.Region, a.Config.Store.DynamoDBTable)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.Log.Info("using dynamodb store", "table", c.TableName())
		return c, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

// HTTP returns the Fiber app serving the API.
func (a *App) HTTP() *fiber.App {
	return api.NewApp(a.Zones, a.Auth, a.Store, a.Log, api.Options{
		CORSOrigins:     a.Config.HTTP.CORSOrigins,
		CookieSecure:    a.Config.HTTP.CookieSecure,
		LoginRateLimit:  a.Config.HTTP.LoginRateLimit,
		LoginRateWindow: a.Config.HTTP.LoginRateWindow,
		ProxyHeader:     a.proxyHeader,
	})
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
