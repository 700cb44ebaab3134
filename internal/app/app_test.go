package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logrtesting "github.com/go-logr/logr/testing"

	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/config"
	"github.com/dns-automate/zone-manager/internal/database/sqlstore"
	"github.com/dns-automate/zone-manager/internal/route53/route53test"
)

func sqliteConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = ":memory:"
	cfg.HTTP.CookieSecure = false
	cfg.Auth.BcryptCost = 4
	return cfg
}

func TestNewWithSQLite(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, sqliteConfig(),
		WithLogger(logrtesting.NewTestLogger(t)),
		WithRoute53API(route53test.New()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, err := a.Auth.CreateUser(ctx, "admin@example.com", "", "correct-horse"); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	app := a.HTTP()
	req := httptest.NewRequest("POST", "/login",
		strings.NewReader(`{"email":"admin@example.com","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var body struct {
		SessionID string `json:"sessionId"`
		User      struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.SessionID == "" || body.User.Username != "admin" {
		t.Errorf("login body = %+v", body)
	}

	req = httptest.NewRequest("POST", "/route53/create-hosted-zone", strings.NewReader(`{"domainName":"example.org"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+body.SessionID)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 201 {
		t.Errorf("create zone status = %d", resp.StatusCode)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Store.Driver = "postgres"

	_, err := New(context.Background(), cfg,
		WithLogger(logrtesting.NewTestLogger(t)),
		WithRoute53API(route53test.New()))
	if err == nil || !strings.Contains(err.Error(), "unknown store driver") {
		t.Errorf("New() error = %v, want unknown store driver", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(),
		WithLogger(logrtesting.NewTestLogger(t)),
		WithRoute53API(route53test.New()))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}

func TestNewPurgesExpiredSQLiteSessions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zone-manager.db")

	store, err := sqlstore.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for _, sess := range []*auth.Session{
		{ID: "stale", UserID: "u-1", Email: "ops@example.com", CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
		{ID: "live", UserID: "u-1", Email: "ops@example.com", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	cfg := sqliteConfig()
	cfg.Store.SQLitePath = path
	a, err := New(ctx, cfg,
		WithLogger(logrtesting.NewTestLogger(t)),
		WithRoute53API(route53test.New()))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if _, err := a.Store.GetSession(ctx, "stale"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("expired session survived startup: %v", err)
	}
	if _, err := a.Store.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
}
