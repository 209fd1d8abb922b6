package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T, extra ...string) config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)
	for _, key := range []string{config.EnvDBConnection, config.EnvJWTSecret, config.EnvJWTExpiry, config.EnvSupabaseURL, config.EnvSupabaseAnonKey, config.EnvPaystackSecretKey, config.EnvLogLevel, config.EnvPort} {
		t.Setenv(key, "")
	}
	hash, errHash := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	dir := t.TempDir()
	body := strings.Join([]string{
		"database-dsn: file:" + filepath.Join(dir, "app.db"),
		"jwt:",
		"  secret: " + testSecret,
		"identity:",
		"  provider: memory",
		"  users:",
		"    - id: auth-1",
		"      email: fan@example.com",
		"      password-hash: '" + string(hash) + "'",
		"ledger:",
		"  starting-balance: 100",
	}, "\n") + "\n" + strings.Join(extra, "\n") + "\n"
	configPath := filepath.Join(dir, "config.yaml")
	if errWrite := os.WriteFile(configPath, []byte(body), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		t.Fatalf("load config: %v", errLoad)
	}
	return cfg
}

func newServer(t *testing.T, extra ...string) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv, errServer := NewServer(ctx, testConfig(t, extra...))
	if errServer != nil {
		t.Fatalf("new server: %v", errServer)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newServer(t)

	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":"up"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "eriggalive_http_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if srv.Payments != nil {
		t.Fatalf("expected payments disabled without a paystack key")
	}
}

func TestLoginAndPromoteAdmin(t *testing.T) {
	srv := newServer(t)

	raw, _ := json.Marshal(gin.H{"email": "fan@example.com", "password": "password1"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v0/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	srv.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &payload); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	token := payload["access_token"].(string)

	adminReq := func() int {
		r := httptest.NewRequest(http.MethodGet, "/v0/admin/users", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		srv.Router.ServeHTTP(w, r)
		return w.Code
	}
	if code := adminReq(); code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", code)
	}

	ctx := context.Background()
	if errPromote := SetAdminWithConn(ctx, srv.DB, "FAN@example.com", true); errPromote != nil {
		t.Fatalf("promote: %v", errPromote)
	}
	if code := adminReq(); code != http.StatusOK {
		t.Fatalf("expected 200 after promotion, got %d", code)
	}
	hasAdmin, errHas := HasAdmin(ctx, srv.DB)
	if errHas != nil || !hasAdmin {
		t.Fatalf("expected an admin, got %v %v", hasAdmin, errHas)
	}

	if errMissing := SetAdminWithConn(ctx, srv.DB, "nobody@example.com", true); !errors.Is(errMissing, ErrUserNotProvisioned) {
		t.Fatalf("expected ErrUserNotProvisioned, got %v", errMissing)
	}
}

// wrongPasswordLogins posts failed logins, each from a different
// X-Forwarded-For address, and returns how many were rate limited.
func wrongPasswordLogins(t *testing.T, srv *Server, attempts int) int {
	t.Helper()
	raw, _ := json.Marshal(gin.H{"email": "fan@example.com", "password": "wrong-password"})
	limited := 0
	for i := 0; i < attempts; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v0/auth/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		switch rec.Code {
		case http.StatusTooManyRequests:
			limited++
		case http.StatusUnauthorized:
		default:
			t.Fatalf("attempt %d: unexpected status %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	return limited
}

func TestLoginLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	srv := newServer(t)
	// Five attempts per minute; a minute boundary mid-loop allows at most ten.
	if limited := wrongPasswordLogins(t, srv, 20); limited < 10 {
		t.Fatalf("expected spoofed X-Forwarded-For to share the peer budget, got %d limited", limited)
	}
}

func TestLoginLimitHonorsTrustedProxy(t *testing.T) {
	// httptest requests originate from 192.0.2.1.
	srv := newServer(t, "server:", "  trusted-proxies:", "    - 192.0.2.1")
	if limited := wrongPasswordLogins(t, srv, 20); limited != 0 {
		t.Fatalf("expected forwarded clients to be counted separately, got %d limited", limited)
	}
}

func TestNewServerRejectsInvalidTrustedProxy(t *testing.T) {
	cfg := testConfig(t, "server:", "  trusted-proxies:", "    - not-an-address")
	srv, errServer := NewServer(context.Background(), cfg)
	if errServer == nil {
		_ = srv.Close()
		t.Fatalf("expected invalid trusted proxy to fail startup")
	}
	if !strings.Contains(errServer.Error(), "trusted-proxies") {
		t.Fatalf("unexpected error %v", errServer)
	}
}
