package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ledger"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/ratelimit"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/store"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	router   *gin.Engine
	db       *gorm.DB
	sessions *session.Manager
	ledger   *ledger.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { internalsettings.StoreDBConfig(time.Time{}, nil) })

	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "admin.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	hash, errHash := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	provider := identity.NewMemoryProvider()
	for _, email := range []string{"admin@example.com", "fan@example.com"} {
		if errAdd := provider.AddUserHash("auth-"+email, email, string(hash)); errAdd != nil {
			t.Fatalf("add user: %v", errAdd)
		}
	}
	codec, errCodec := security.NewTokenCodec(testSecret, "eriggalive", nil)
	if errCodec != nil {
		t.Fatalf("codec: %v", errCodec)
	}
	cfg := session.DefaultConfig()
	cfg.StartingBalance = 100
	manager := session.NewManager(store.NewGormStore(conn), provider, codec, cfg, nil)
	engine := ledger.NewEngine(conn, ledger.Config{MinWithdrawal: 10})

	router := gin.New()
	RegisterAdminRoutes(router, Deps{DB: conn, Sessions: manager, Ledger: engine})
	return &fixture{router: router, db: conn, sessions: manager, ledger: engine}
}

func (f *fixture) login(t *testing.T, email string) *session.LoginResult {
	t.Helper()
	result, errLogin := f.sessions.Login(context.Background(), session.LoginRequest{Email: email, Password: "password1"})
	if errLogin != nil {
		t.Fatalf("login %s: %v", email, errLogin)
	}
	return result
}

func (f *fixture) loginAdmin(t *testing.T) *session.LoginResult {
	t.Helper()
	result := f.login(t, "admin@example.com")
	if errUpdate := f.db.Model(&models.User{}).Where("id = ?", result.User.ID).Update("is_admin", true).Error; errUpdate != nil {
		t.Fatalf("promote admin: %v", errUpdate)
	}
	return result
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var raw []byte
	if body != nil {
		encoded, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
		raw = encoded
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		if errUnmarshal := json.Unmarshal(rec.Body.Bytes(), &payload); errUnmarshal != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, errUnmarshal, rec.Body.String())
		}
	}
	return rec, payload
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	fan := f.login(t, "fan@example.com")

	rec, _ := f.do(t, http.MethodGet, "/v0/admin/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec, payload := f.do(t, http.MethodGet, "/v0/admin/users", fan.AccessToken, nil)
	if rec.Code != http.StatusForbidden || payload["code"] != "FORBIDDEN" {
		t.Fatalf("expected 403 FORBIDDEN, got %d %v", rec.Code, payload)
	}
}

func TestListUsersWithSearch(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	f.login(t, "fan@example.com")

	rec, payload := f.do(t, http.MethodGet, "/v0/admin/users", admin.AccessToken, nil)
	if rec.Code != http.StatusOK || len(payload["users"].([]any)) != 2 {
		t.Fatalf("expected 2 users, got %d %v", rec.Code, payload)
	}
	rec, payload = f.do(t, http.MethodGet, "/v0/admin/users?search=FAN", admin.AccessToken, nil)
	if rec.Code != http.StatusOK || len(payload["users"].([]any)) != 1 {
		t.Fatalf("expected 1 match, got %d %v", rec.Code, payload)
	}
	rec, _ = f.do(t, http.MethodGet, "/v0/admin/users?tier=royalty", admin.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tier, got %d", rec.Code)
	}
}

func TestBanRevokesSessions(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	fan := f.login(t, "fan@example.com")

	rec, payload := f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/users/%d/ban", fan.User.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusOK || payload["revoked_sessions"] != float64(1) {
		t.Fatalf("ban: %d %v", rec.Code, payload)
	}
	if _, errAuth := f.sessions.Authenticate(context.Background(), fan.AccessToken); errAuth == nil {
		t.Fatalf("expected banned user's token to be rejected")
	}

	rec, _ = f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/users/%d/ban", admin.User.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected self-ban to be refused, got %d", rec.Code)
	}

	rec, _ = f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/users/%d/unban", fan.User.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unban: %d", rec.Code)
	}
	var user models.User
	if errFind := f.db.First(&user, fan.User.ID).Error; errFind != nil {
		t.Fatalf("load user: %v", errFind)
	}
	if user.Banned {
		t.Fatalf("expected user unbanned")
	}

	rec, payload = f.do(t, http.MethodPost, "/v0/admin/users/9999/deactivate", admin.AccessToken, nil)
	if rec.Code != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d %v", rec.Code, payload)
	}
}

func TestAdjustCoins(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	fan := f.login(t, "fan@example.com")
	path := fmt.Sprintf("/v0/admin/users/%d/coins", fan.User.ID)

	rec, payload := f.do(t, http.MethodPost, path, admin.AccessToken, gin.H{"amount": 250, "note": "contest prize"})
	if rec.Code != http.StatusOK || payload["balance"] != float64(350) {
		t.Fatalf("credit: %d %v", rec.Code, payload)
	}
	rec, payload = f.do(t, http.MethodPost, path, admin.AccessToken, gin.H{"amount": -1000})
	if rec.Code != http.StatusPaymentRequired || payload["code"] != "INSUFFICIENT_FUNDS" {
		t.Fatalf("expected insufficient funds, got %d %v", rec.Code, payload)
	}
	rec, payload = f.do(t, http.MethodPost, path, admin.AccessToken, gin.H{"amount": 0})
	if rec.Code != http.StatusBadRequest || payload["code"] != "INVALID_AMOUNT" {
		t.Fatalf("expected invalid amount, got %d %v", rec.Code, payload)
	}
}

func TestWithdrawalReview(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)
	fan := f.login(t, "fan@example.com")
	ctx := context.Background()

	first, errFirst := f.ledger.RequestWithdrawal(ctx, fan.User.ID, 40, map[string]any{"bank": "044"})
	if errFirst != nil {
		t.Fatalf("request withdrawal: %v", errFirst)
	}
	second, errSecond := f.ledger.RequestWithdrawal(ctx, fan.User.ID, 60, nil)
	if errSecond != nil {
		t.Fatalf("request withdrawal: %v", errSecond)
	}

	rec, payload := f.do(t, http.MethodGet, "/v0/admin/withdrawals", admin.AccessToken, nil)
	if rec.Code != http.StatusOK || len(payload["withdrawals"].([]any)) != 2 {
		t.Fatalf("expected 2 pending, got %d %v", rec.Code, payload)
	}

	rec, payload = f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/withdrawals/%d/approve", first.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusOK || payload["withdrawal"].(map[string]any)["status"] != "approved" {
		t.Fatalf("approve: %d %v", rec.Code, payload)
	}
	rec, payload = f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/withdrawals/%d/approve", first.ID), admin.AccessToken, nil)
	if rec.Code != http.StatusConflict || payload["code"] != "CONFLICT" {
		t.Fatalf("expected conflict on second approve, got %d %v", rec.Code, payload)
	}

	rec, _ = f.do(t, http.MethodPost, fmt.Sprintf("/v0/admin/withdrawals/%d/reject", second.ID), admin.AccessToken, gin.H{"note": "invalid account"})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d", rec.Code)
	}
	balance, errBalance := f.ledger.Balance(ctx, fan.User.ID)
	if errBalance != nil {
		t.Fatalf("balance: %v", errBalance)
	}
	if balance != 60 {
		t.Fatalf("expected refund to restore balance 60, got %d", balance)
	}

	rec, payload = f.do(t, http.MethodGet, "/v0/admin/withdrawals?status=all", admin.AccessToken, nil)
	if rec.Code != http.StatusOK || len(payload["withdrawals"].([]any)) != 2 {
		t.Fatalf("expected 2 withdrawals, got %d %v", rec.Code, payload)
	}
}

func TestSettingsValidationAndRefresh(t *testing.T) {
	f := newFixture(t)
	admin := f.loginAdmin(t)

	rec, _ := f.do(t, http.MethodPut, "/v0/admin/settings/VOTE_COST", admin.AccessToken, gin.H{"value": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected zero vote cost rejected, got %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPut, "/v0/admin/settings/VOTE_COST", admin.AccessToken, gin.H{"value": 25})
	if rec.Code != http.StatusOK {
		t.Fatalf("update vote cost: %d %s", rec.Code, rec.Body.String())
	}
	if cost := internalsettings.VoteCost(); cost != 25 {
		t.Fatalf("expected snapshot vote cost 25, got %d", cost)
	}

	rec, _ = f.do(t, http.MethodPut, "/v0/admin/settings/LOGIN_RATE_LIMIT_WINDOW_SECONDS", admin.AccessToken, gin.H{"value": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected zero login window rejected, got %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPut, "/v0/admin/settings/LOGIN_RATE_LIMIT_WINDOW_SECONDS", admin.AccessToken, gin.H{"value": 900})
	if rec.Code != http.StatusOK {
		t.Fatalf("update login window: %d %s", rec.Code, rec.Body.String())
	}
	if window := ratelimit.LoadSettingsConfig().ResolveLimit(ratelimit.ScopeLogin).Window; window != 15*time.Minute {
		t.Fatalf("expected 15m login window in snapshot, got %s", window)
	}

	rec, _ = f.do(t, http.MethodPost, "/v0/admin/settings", admin.AccessToken, gin.H{"key": "RATE_LIMIT_REDIS_ENABLED", "value": "maybe"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid bool rejected, got %d", rec.Code)
	}
	rec, _ = f.do(t, http.MethodPost, "/v0/admin/settings", admin.AccessToken, gin.H{"key": "RATE_LIMIT_REDIS_PASSWORD", "value": "hunter2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create password: %d %s", rec.Code, rec.Body.String())
	}
	rec, payload := f.do(t, http.MethodGet, "/v0/admin/settings/RATE_LIMIT_REDIS_PASSWORD", admin.AccessToken, nil)
	if rec.Code != http.StatusOK || payload["setting"].(map[string]any)["value"] != "********" {
		t.Fatalf("expected masked password, got %d %v", rec.Code, payload)
	}
	rec, payload = f.do(t, http.MethodPost, "/v0/admin/settings", admin.AccessToken, gin.H{"key": "VOTE_COST", "value": 10})
	if rec.Code != http.StatusConflict || payload["code"] != "CONFLICT" {
		t.Fatalf("expected duplicate key conflict, got %d %v", rec.Code, payload)
	}

	rec, _ = f.do(t, http.MethodDelete, "/v0/admin/settings/VOTE_COST", admin.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if cost := internalsettings.VoteCost(); cost != internalsettings.DefaultVoteCost {
		t.Fatalf("expected default vote cost after delete, got %d", cost)
	}
}
