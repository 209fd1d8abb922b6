package apiutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/session"
)

type tokenAuthenticator map[string]uint64

func (a tokenAuthenticator) Authenticate(_ context.Context, accessToken string) (*session.Identity, error) {
	id, ok := a[accessToken]
	if !ok {
		return nil, security.ErrTokenInvalid
	}
	return &session.Identity{User: models.User{ID: id}}, nil
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer abc", token: "abc", ok: true},
		{header: "BEARER  abc ", token: "abc", ok: true},
		{header: "Bearer", ok: false},
		{header: "Basic abc", ok: false},
		{header: "Bearerabc", ok: false},
	}
	for _, tc := range cases {
		token, ok := bearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

func TestRequireAuth_SchemeIsCaseInsensitive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", RequireAuth(tokenAuthenticator{"tok-1": 7}), func(c *gin.Context) {
		ident, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": ident.User.ID})
	})

	for _, header := range []string{"Bearer tok-1", "bearer tok-1", "BeArEr tok-1"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("header %q: expected 200, got %d (%s)", header, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token tok-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown scheme, got %d", rec.Code)
	}
}
