// Package cli implements zonectl, the command-line client for managing
// hosted zones, records and users directly against the configured backends.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dns-automate/zone-manager/internal/app"
	"github.com/dns-automate/zone-manager/internal/config"
	"github.com/dns-automate/zone-manager/internal/logging"
)

// Context carries global flags and the App factory to subcommands.
type Context struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// NewApp builds the App a command runs against. Tests replace it.
	NewApp func(ctx context.Context, cfg *config.Config) (*app.App, error)
}

func defaultNewApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.WithLogger(log))
}

// open loads the configuration, applies flag overrides and builds the App.
func (c *Context) open(ctx context.Context) (*app.App, error) {
	path := c.ConfigPath
	if path == "" {
		path = os.Getenv(config.PathEnv)
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}

	newApp := c.NewApp
	if newApp == nil {
		newApp = defaultNewApp
	}
	return newApp(ctx, cfg)
}

// run opens the App, hands it to fn and closes it afterwards.
func (c *Context) run(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// NewRootCommand builds the zonectl command tree.
func NewRootCommand(c *Context) *cobra.Command {
	root := &cobra.Command{
		Use:           "zonectl",
		Short:         "Manage Route 53 hosted zones and records",
		Long:          "zonectl manages hosted zones, DNS records and login users using the zone manager configuration.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", "", "config file (default $"+config.PathEnv+")")
	root.PersistentFlags().StringVar(&c.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.LogFormat, "log-format", "console", "log format: json or console")

	root.AddCommand(newZonesCommand(c))
	root.AddCommand(newRecordsCommand(c))
	root.AddCommand(newUsersCommand(c))
	return root
}

// Execute runs zonectl with os.Args.
func Execute() error {
	root := NewRootCommand(&Context{})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
