package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxSupabaseResponseBytes = 1 << 20

// SupabaseProvider signs users in through the Supabase GoTrue API.
type SupabaseProvider struct {
	authURL string
	anonKey string
	client  *http.Client
}

// NewSupabaseProvider builds a provider for the project at projectURL.
func NewSupabaseProvider(projectURL, anonKey string, timeout time.Duration) (*SupabaseProvider, error) {
	projectURL = strings.TrimRight(strings.TrimSpace(projectURL), "/")
	if projectURL == "" {
		return nil, fmt.Errorf("supabase: project url is required")
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, fmt.Errorf("supabase: anon key is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseProvider{
		authURL: projectURL + "/auth/v1",
		anonKey: strings.TrimSpace(anonKey),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// supabaseSession is the subset of the GoTrue token response we consume.
type supabaseSession struct {
	User struct {
		ID           string         `json:"id"`
		Email        string         `json:"email"`
		UserMetadata map[string]any `json:"user_metadata"`
	} `json:"user"`
}

// supabaseError covers the error shapes GoTrue returns.
type supabaseError struct {
	Code             any    `json:"code"`
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SignIn exchanges email/password for a GoTrue session.
func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	body, errMarshal := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if errMarshal != nil {
		return Identity{}, fmt.Errorf("supabase: marshal request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL+"/token?grant_type=password", bytes.NewReader(body))
	if errReq != nil {
		return Identity{}, fmt.Errorf("supabase: build request: %w", errReq)
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+p.anonKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, errDo := p.client.Do(req)
	if errDo != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, errRead := io.ReadAll(io.LimitReader(resp.Body, maxSupabaseResponseBytes))
	if errRead != nil {
		return Identity{}, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, errRead)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusUnprocessableEntity:
		return Identity{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, parseSupabaseError(respBody))
	case resp.StatusCode >= 400:
		return Identity{}, fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, parseSupabaseError(respBody))
	}

	var session supabaseSession
	if errUnmarshal := json.Unmarshal(respBody, &session); errUnmarshal != nil {
		return Identity{}, fmt.Errorf("supabase: unmarshal response: %w", errUnmarshal)
	}
	if session.User.ID == "" {
		return Identity{}, fmt.Errorf("supabase: response missing user id")
	}

	ident := Identity{ID: session.User.ID, Email: session.User.Email}
	if username, ok := session.User.UserMetadata["username"].(string); ok {
		ident.Username = strings.TrimSpace(username)
	}
	if ident.Email == "" {
		ident.Email = email
	}
	return ident, nil
}

func parseSupabaseError(body []byte) string {
	var errResp supabaseError
	if errUnmarshal := json.Unmarshal(body, &errResp); errUnmarshal != nil {
		return strings.TrimSpace(string(body))
	}
	for _, msg := range []string{errResp.ErrorDescription, errResp.Message, errResp.Error} {
		if msg != "" {
			return msg
		}
	}
	return "unknown error"
}
