package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zone-manager.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		PathEnv, "AWS_REGION", "LISTEN_ADDR", "PORT", "LOG_LEVEL", "LOG_FORMAT", "STORE_DRIVER",
		"DYNAMODB_TABLE", "SQLITE_PATH", "ROUTE53_ENDPOINT", "CORS_ORIGINS", "COOKIE_SECURE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "us-east-2" {
		t.Errorf("expected region 'us-east-2', got %q", cfg.Region)
	}
	if cfg.Store.Driver != DriverDynamoDB || cfg.Store.DynamoDBTable != "dns-automate-table" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected listen addr ':8080', got %q", cfg.ListenAddr)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZM_TEST_TABLE", "from-env-table")
	path := writeConfig(t, `region: eu-west-1
log:
  level: debug
  format: console
store:
  driver: dynamodb
  dynamodb_table: ${ZM_TEST_TABLE}
http:
  cors_origins: ["https://ops.example.com"]
  login_rate_limit: 5
  login_rate_window: 1m
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Errorf("expected region 'eu-west-1', got %q", cfg.Region)
	}
	if cfg.Store.DynamoDBTable != "from-env-table" {
		t.Errorf("expected expanded table name, got %q", cfg.Store.DynamoDBTable)
	}
	if cfg.Log.Format != "console" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.HTTP.LoginRateWindow != time.Minute || cfg.HTTP.LoginRateLimit != 5 {
		t.Errorf("unexpected http config: %+v", cfg.HTTP)
	}
	if !slices.Equal(cfg.HTTP.CORSOrigins, []string{"https://ops.example.com"}) {
		t.Errorf("unexpected cors origins: %v", cfg.HTTP.CORSOrigins)
	}
	// Unset keys keep their defaults.
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "region: eu-west-1\n")
	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/zm.db")
	t.Setenv("ROUTE53_ENDPOINT", "http://localhost:4566")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("PORT", "3000")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "ap-southeast-2" {
		t.Errorf("AWS_REGION not applied: %q", cfg.Region)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.SQLitePath != "/tmp/zm.db" {
		t.Errorf("store overrides not applied: %+v", cfg.Store)
	}
	if cfg.Route53.Endpoint != "http://localhost:4566" {
		t.Errorf("ROUTE53_ENDPOINT not applied: %q", cfg.Route53.Endpoint)
	}
	if !slices.Equal(cfg.HTTP.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("CORS_ORIGINS = %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.HTTP.CookieSecure {
		t.Error("COOKIE_SECURE=false not applied")
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("PORT not applied: %q", cfg.ListenAddr)
	}

	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	cfg, err = LoadFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("LISTEN_ADDR should win over PORT, got %q", cfg.ListenAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		env     map[string]string
		want    string
	}{
		{"unknown driver", "store:\n  driver: postgres\n", nil, "unknown driver"},
		{"unknown format", "log:\n  format: xml\n", nil, "unknown format"},
		{"unknown level", "log:\n  level: chatty\n", nil, "unknown level"},
		{"bad yaml", "region: [\n", nil, "parsing config file"},
		{"bad cookie flag", "", map[string]string{"COOKIE_SECURE": "maybe"}, "COOKIE_SECURE"},
		{"bcrypt cost", "auth:\n  bcrypt_cost: 2\n", nil, "bcrypt_cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromPath(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadUsesPathEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(PathEnv, writeConfig(t, "region: sa-east-1\n"))
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Region != "sa-east-1" {
		t.Errorf("expected region from $%s file, got %q", PathEnv, cfg.Region)
	}
}
