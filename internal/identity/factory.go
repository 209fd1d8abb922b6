package identity

import (
	"fmt"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
)

// New builds the provider selected by cfg.Provider.
func New(cfg config.IdentityConfig) (Provider, error) {
	switch cfg.Provider {
	case config.IdentityProviderSupabase:
		return NewSupabaseProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.Timeout)
	case config.IdentityProviderMemory:
		provider := NewMemoryProvider()
		for _, user := range cfg.Users {
			if errAdd := provider.AddUserHash(user.ID, user.Email, user.PasswordHash); errAdd != nil {
				return nil, &config.ConfigurationError{Field: "identity.users", Reason: errAdd.Error()}
			}
		}
		return provider, nil
	default:
		return nil, &config.ConfigurationError{Field: "identity.provider", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
}
