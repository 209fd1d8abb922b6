package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func TestSupabaseProvider_SignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("expected apikey header, got %q", r.Header.Get("apikey"))
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "fan@example.com" || body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"x","user":{"id":"sb-123","email":"fan@example.com","user_metadata":{"username":"warri_fan"}}}`))
	}))
	defer srv.Close()

	provider, err := NewSupabaseProvider(srv.URL+"/", "anon-key", time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	ident, err := provider.SignIn(context.Background(), "fan@example.com", "secret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if ident.ID != "sb-123" || ident.Username != "warri_fan" || ident.Email != "fan@example.com" {
		t.Fatalf("unexpected identity: %+v", ident)
	}

	if _, errBad := provider.SignIn(context.Background(), "fan@example.com", "wrong"); !errors.Is(errBad, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", errBad)
	}
}

func TestSupabaseProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	provider, err := NewSupabaseProvider(srv.URL, "anon-key", time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, errSignIn := provider.SignIn(context.Background(), "a@b.co", "pw"); !errors.Is(errSignIn, ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", errSignIn)
	}
}

func TestMemoryProvider_SignIn(t *testing.T) {
	provider := NewMemoryProvider()
	if err := provider.AddUser("id-1", "Fan@Example.com", "hunter2"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	ident, err := provider.SignIn(context.Background(), "fan@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if ident.ID != "id-1" || ident.Email != "fan@example.com" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if _, errWrong := provider.SignIn(context.Background(), "fan@example.com", "nope"); !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", errWrong)
	}
	if _, errUnknown := provider.SignIn(context.Background(), "ghost@example.com", "hunter2"); !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", errUnknown)
	}
}

func TestNew_MemoryFromConfig(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	provider, err := New(config.IdentityConfig{
		Provider: config.IdentityProviderMemory,
		Users:    []config.LocalIdentity{{ID: "u1", Email: "a@b.co", PasswordHash: string(hash)}},
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	if _, errSignIn := provider.SignIn(context.Background(), "a@b.co", "pw"); errSignIn != nil {
		t.Fatalf("sign in: %v", errSignIn)
	}

	_, errBad := New(config.IdentityConfig{
		Provider: config.IdentityProviderMemory,
		Users:    []config.LocalIdentity{{Email: "a@b.co", PasswordHash: "plaintext"}},
	})
	if !errors.Is(errBad, config.ErrConfiguration) {
		t.Fatalf("expected configuration error for bad hash, got %v", errBad)
	}
}
