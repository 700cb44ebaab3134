package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "ZONE_MANAGER_CONFIG"

// Store drivers.
const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
)

// Config is the zone manager configuration.
type Config struct {
	Region     string        `yaml:"region"`
	ListenAddr string        `yaml:"listen_addr"`
	Log        LogConfig     `yaml:"log"`
	Store      StoreConfig   `yaml:"store"`
	Route53    Route53Config `yaml:"route53"`
	HTTP       HTTPConfig    `yaml:"http"`
	Auth       AuthConfig    `yaml:"auth"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	SQLitePath    string `yaml:"sqlite_path"`
}

type Route53Config struct {
	Endpoint string `yaml:"endpoint"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `yaml:"cors_origins"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Region:     "us-east-2",
		ListenAddr: ":8080",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:        DriverDynamoDB,
			DynamoDBTable: "dns-automate-table",
			SQLitePath:    "./zone-manager.db",
		},
		HTTP: HTTPConfig{
			CORSOrigins:     []string{"*"},
			CookieSecure:    true,
			LoginRateLimit:  10,
			LoginRateWindow: 15 * time.Minute,
		},
		Auth: AuthConfig{
			BcryptCost: 10,
		},
	}
}

// Load builds the configuration from defaults, the file named by
// $ZONE_MANAGER_CONFIG (if set) and environment overrides, then validates it.
func Load() (*Config, error) {
	return LoadFromPath(os.Getenv(PathEnv))
}

// LoadFromPath is Load with an explicit file path. An empty path skips the
// file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Expand ${ENV_VAR} references before parsing.
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("AWS_REGION", &c.Region)
	setString("LISTEN_ADDR", &c.ListenAddr)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("STORE_DRIVER", &c.Store.Driver)
	setString("DYNAMODB_TABLE", &c.Store.DynamoDBTable)
	setString("SQLITE_PATH", &c.Store.SQLitePath)
	setString("ROUTE53_ENDPOINT", &c.Route53.Endpoint)

	// PORT is set by most container platforms; LISTEN_ADDR wins if both are.
	if port, ok := os.LookupEnv("PORT"); ok && port != "" && os.Getenv("LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + port
	}

	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok && v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.HTTP.CookieSecure = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects unknown drivers, formats and levels.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverDynamoDB:
		if c.Store.DynamoDBTable == "" {
			errs = append(errs, errors.New("store.dynamodb_table is required for the dynamodb driver"))
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.HTTP.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("http.login_rate_limit must be positive"))
	}
	if c.HTTP.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("http.login_rate_window must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost %d out of range 4-31", c.Auth.BcryptCost))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
