package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned when the provider rejects the login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderUnavailable is returned when the provider cannot be reached.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is the external account returned by a successful sign-in.
type Identity struct {
	ID       string // Provider subject.
	Email    string // Verified email address.
	Username string // Preferred handle from provider metadata, if any.
}

// Provider verifies email/password credentials.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
}
