package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dns-automate/zone-manager/internal/api/middleware"
	"github.com/dns-automate/zone-manager/internal/auth"
	"github.com/dns-automate/zone-manager/internal/auth/authtest"
	"github.com/dns-automate/zone-manager/internal/route53"
	"github.com/dns-automate/zone-manager/internal/route53/route53test"
	"github.com/dns-automate/zone-manager/internal/service"
)

const (
	testEmail    = "ops@example.com"
	testPassword = "s3cret-pass"
)

type testEnv struct {
	app  *fiber.App
	fake *route53test.Fake
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logr.Discard()
	fake := route53test.New()
	store := authtest.NewMemoryStore()

	zones := service.NewZoneService(route53.NewClient(fake, log), log)
	authService, err := service.NewAuthService(store, auth.NewSessionManager(store, auth.WithSecureCookie(false)), log,
		service.WithBcryptCost(bcrypt.MinCost))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := authService.CreateUser(context.Background(), testEmail, "ops", testPassword); err != nil {
		t.Fatal(err)
	}

	app := NewApp(zones, authService, store, log, Options{
		CORSOrigins:     []string{"*"},
		LoginRateLimit:  3,
		LoginRateWindow: time.Minute,
	})
	return &testEnv{app: app, fake: fake}
}

type result struct {
	status  int
	body    map[string]any
	headers http.Header
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) result {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	out := result{status: resp.StatusCode, headers: resp.Header, cookies: resp.Cookies()}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("%s %s: response is not JSON: %q", method, path, raw)
		}
	}
	return out
}

func (e *testEnv) login(t *testing.T) (sessionID string) {
	t.Helper()
	res := e.do(t, "POST", "/login", map[string]string{"email": testEmail, "password": testPassword}, nil)
	if res.status != fiber.StatusOK {
		t.Fatalf("login status = %d, body %v", res.status, res.body)
	}
	id, _ := res.body["sessionId"].(string)
	if id == "" {
		t.Fatalf("login returned no session id: %v", res.body)
	}
	return id
}

func bearer(id string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + id}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	res := e.do(t, "GET", "/healthz", nil, nil)
	if res.status != fiber.StatusOK || res.body["status"] != "ok" {
		t.Errorf("healthz = %d %v", res.status, res.body)
	}
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	res := e.do(t, "POST", "/login", map[string]string{"email": "OPS@example.com", "password": testPassword}, nil)
	if res.status != fiber.StatusOK {
		t.Fatalf("status = %d, body %v", res.status, res.body)
	}
	if res.body["message"] != "Login successful" {
		t.Errorf("message = %v", res.body["message"])
	}
	user, _ := res.body["user"].(map[string]any)
	if user["email"] != testEmail {
		t.Errorf("user = %v", user)
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Error("password hash returned to client")
	}

	var cookie *http.Cookie
	for _, c := range res.cookies {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != res.body["sessionId"] || !cookie.HttpOnly {
		t.Errorf("session cookie = %+v", cookie)
	}
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)

	res := e.do(t, "POST", "/login", map[string]string{"email": testEmail, "password": "wrong-pass"}, nil)
	if res.status != fiber.StatusUnauthorized || res.body["message"] != "Invalid email or password" {
		t.Errorf("wrong password = %d %v", res.status, res.body)
	}

	res = e.do(t, "POST", "/login", map[string]string{"email": testEmail}, nil)
	if res.status != fiber.StatusBadRequest {
		t.Errorf("missing password = %d %v", res.status, res.body)
	}
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t)
	creds := map[string]string{"email": testEmail, "password": "wrong-pass"}

	for i := range 3 {
		if res := e.do(t, "POST", "/login", creds, nil); res.status != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i+1, res.status)
		}
	}
	res := e.do(t, "POST", "/login", creds, nil)
	if res.status != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", res.status)
	}
	if res.headers.Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", res.headers.Get("Retry-After"))
	}
}

func TestRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{"no credentials", nil},
		{"unknown bearer", bearer("6f1c1f4e-5b7e-4b8e-9a59-8d1d2b0c4f11")},
		{"malformed cookie", map[string]string{"Cookie": auth.SessionCookieName + "=garbage"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.do(t, "GET", "/route53/hosted-zones", nil, tt.headers)
			if res.status != fiber.StatusUnauthorized {
				t.Errorf("status = %d, want 401", res.status)
			}
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	e := newTestEnv(t)
	id := e.login(t)

	res := e.do(t, "GET", "/me", nil, bearer(id))
	user, _ := res.body["user"].(map[string]any)
	if res.status != fiber.StatusOK || user["email"] != testEmail {
		t.Fatalf("me = %d %v", res.status, res.body)
	}

	if res := e.do(t, "POST", "/logout", nil, bearer(id)); res.status != fiber.StatusOK {
		t.Fatalf("logout = %d", res.status)
	}
	if res := e.do(t, "GET", "/me", nil, bearer(id)); res.status != fiber.StatusUnauthorized {
		t.Errorf("me after logout = %d", res.status)
	}
}

func TestCSRF(t *testing.T) {
	e := newTestEnv(t)
	id := e.login(t)
	sessionCookie := auth.SessionCookieName + "=" + id
	body := map[string]string{"domainName": "example.com"}

	res := e.do(t, "POST", "/route53/create-hosted-zone", body, map[string]string{"Cookie": sessionCookie})
	if res.status != fiber.StatusForbidden {
		t.Fatalf("cookie POST without token = %d, want 403", res.status)
	}

	// A safe request issues the token.
	res = e.do(t, "GET", "/route53/hosted-zones", nil, map[string]string{"Cookie": sessionCookie})
	token := res.headers.Get(middleware.CSRFHeaderName)
	if res.status != fiber.StatusOK || token == "" {
		t.Fatalf("GET = %d, token %q", res.status, token)
	}

	cookies := sessionCookie + "; " + middleware.CSRFCookieName + "=" + token
	res = e.do(t, "POST", "/route53/create-hosted-zone", body, map[string]string{
		"Cookie":                  cookies,
		middleware.CSRFHeaderName: "wrong",
	})
	if res.status != fiber.StatusForbidden {
		t.Errorf("mismatched token = %d, want 403", res.status)
	}

	res = e.do(t, "POST", "/route53/create-hosted-zone", body, map[string]string{
		"Cookie":                  cookies,
		middleware.CSRFHeaderName: token,
	})
	if res.status != fiber.StatusCreated {
		t.Errorf("valid token = %d %v, want 201", res.status, res.body)
	}
}

func TestZoneLifecycle(t *testing.T) {
	e := newTestEnv(t)
	h := bearer(e.login(t))

	res := e.do(t, "POST", "/route53/create-hosted-zone", map[string]string{"domainName": "example.com"}, h)
	if res.status != fiber.StatusCreated || res.body["message"] != "Hosted zone created successfully" {
		t.Fatalf("create = %d %v", res.status, res.body)
	}

	res = e.do(t, "GET", "/route53/hosted-zones", nil, h)
	zones, _ := res.body["hostedZones"].([]any)
	if res.status != fiber.StatusOK || len(zones) != 1 {
		t.Fatalf("list = %d %v", res.status, res.body)
	}

	res = e.do(t, "GET", "/route53/hosted-zones/example.com.", nil, h)
	if res.status != fiber.StatusOK {
		t.Fatalf("get = %d %v", res.status, res.body)
	}

	record := map[string]any{
		"domainName":  "example.com",
		"recordName":  "www.example.com",
		"recordType":  "A",
		"recordValue": "192.0.2.1",
		"ttl":         300,
	}
	res = e.do(t, "POST", "/route53/add-record", record, h)
	if res.status != fiber.StatusCreated || res.body["message"] != "DNS record added successfully" {
		t.Fatalf("add = %d %v", res.status, res.body)
	}
	data, _ := res.body["data"].(map[string]any)
	if data["status"] != "PENDING" {
		t.Errorf("change info = %v", data)
	}

	res = e.do(t, "GET", "/route53/hosted-zones/example.com/records", nil, h)
	records, _ := res.body["records"].([]any)
	if res.status != fiber.StatusOK || len(records) != 3 {
		t.Fatalf("records = %d %v", res.status, res.body)
	}

	res = e.do(t, "DELETE", "/route53/delete-hosted-zone/example.com", nil, h)
	if res.status != fiber.StatusBadRequest {
		t.Fatalf("delete non-empty zone = %d %v, want 400", res.status, res.body)
	}
	if blocking, _ := res.body["records"].([]any); len(blocking) != 1 {
		t.Errorf("blocking records = %v", res.body["records"])
	}

	res = e.do(t, "POST", "/route53/edit-record", map[string]any{
		"domainName":     "example.com",
		"oldRecordName":  "www.example.com",
		"oldRecordType":  "A",
		"oldRecordValue": "192.0.2.1",
		"oldTtl":         300,
		"newRecordName":  "www.example.com",
		"newRecordType":  "A",
		"newRecordValue": "192.0.2.2",
		"newTtl":         120,
	}, h)
	if res.status != fiber.StatusOK || res.body["message"] != "DNS record edited successfully" {
		t.Fatalf("edit = %d %v", res.status, res.body)
	}

	record["recordValue"] = "192.0.2.2"
	record["ttl"] = 120
	res = e.do(t, "POST", "/route53/delete-record", record, h)
	if res.status != fiber.StatusOK {
		t.Fatalf("delete record = %d %v", res.status, res.body)
	}

	res = e.do(t, "DELETE", "/route53/delete-hosted-zone/example.com", nil, h)
	if res.status != fiber.StatusOK || res.body["message"] != "Hosted zone deleted successfully" {
		t.Fatalf("delete zone = %d %v", res.status, res.body)
	}
}

func TestErrorStatuses(t *testing.T) {
	e := newTestEnv(t)
	h := bearer(e.login(t))
	if res := e.do(t, "POST", "/route53/create-hosted-zone", map[string]string{"domainName": "example.com"}, h); res.status != fiber.StatusCreated {
		t.Fatal("create zone failed")
	}
	if res := e.do(t, "POST", "/route53/add-record", map[string]any{
		"domainName": "example.com", "recordName": "www.example.com", "recordType": "A", "recordValue": "192.0.2.1", "ttl": 300,
	}, h); res.status != fiber.StatusCreated {
		t.Fatal("add record failed")
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown zone records", "GET", "/route53/hosted-zones/nowhere.test/records", nil, fiber.StatusNotFound},
		{"unknown zone add", "POST", "/route53/add-record", map[string]any{
			"domainName": "nowhere.test", "recordName": "www.nowhere.test", "recordType": "A", "recordValue": "192.0.2.1",
		}, fiber.StatusNotFound},
		{"invalid value", "POST", "/route53/add-record", map[string]any{
			"domainName": "example.com", "recordName": "www.example.com", "recordType": "A", "recordValue": "nope",
		}, fiber.StatusBadRequest},
		{"empty domain", "POST", "/route53/create-hosted-zone", map[string]any{"domainName": ""}, fiber.StatusBadRequest},
		{"mismatched delete", "POST", "/route53/delete-record", map[string]any{
			"domainName": "example.com", "recordName": "www.example.com", "recordType": "A", "recordValue": "192.0.2.99", "ttl": 300,
		}, fiber.StatusInternalServerError},
		{"unknown route", "GET", "/route53/nothing-here", nil, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.do(t, tt.method, tt.path, tt.body, h)
			if res.status != tt.status {
				t.Fatalf("status = %d, want %d (%v)", res.status, tt.status, res.body)
			}
			if tt.status == fiber.StatusNotFound && strings.HasPrefix(tt.path, "/route53/hosted-zones") {
				if res.body["message"] != "Hosted zone not found" {
					t.Errorf("message = %v", res.body["message"])
				}
			}
		})
	}

	if n := e.fake.CallCount("ChangeResourceRecordSets"); n != 2 {
		t.Errorf("ChangeResourceRecordSets called %d times, want 2 (add + mismatched delete)", n)
	}
}
