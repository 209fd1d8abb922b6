package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath        = "CONFIG_PATH"
	EnvDBConnection      = "DB_CONNECTION"
	EnvJWTSecret         = "JWT_SECRET"
	EnvJWTExpiry         = "JWT_EXPIRY"
	EnvSupabaseURL       = "SUPABASE_URL"
	EnvSupabaseAnonKey   = "SUPABASE_ANON_KEY"
	EnvPaystackSecretKey = "PAYSTACK_SECRET_KEY"
	EnvLogLevel          = "LOG_LEVEL"
	EnvPort              = "PORT"
)

// Identity provider names accepted by identity.provider.
const (
	IdentityProviderMemory   = "memory"
	IdentityProviderSupabase = "supabase"
)

// Session store names accepted by session.store.
const (
	SessionStoreDatabase = "database"
	SessionStoreMemory   = "memory"
)

// MinJWTSecretLength is the minimum accepted signing secret size in bytes.
const MinJWTSecretLength = 32

// ErrConfiguration is matched by every ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("configuration error")

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// ConfigurationError reports a fatal startup misconfiguration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For
	// headers are honored. Empty means the peer address is the client.
	TrustedProxies  []string      `yaml:"trusted-proxies"`
}

// DatabaseConfig holds the relational store connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	Expiry     time.Duration `yaml:"expiry"`
	RefreshTTL time.Duration `yaml:"refresh-expiry"`
}

// SessionConfig controls server-tracked login sessions.
type SessionConfig struct {
	Store               string        `yaml:"store"`
	MaxActive           int           `yaml:"max-active"`
	TTL                 time.Duration `yaml:"ttl"`
	RememberMeTTL       time.Duration `yaml:"remember-me-ttl"`
	RotateRefreshTokens *bool         `yaml:"rotate-refresh-tokens"`
}

// RotationEnabled reports whether refresh tokens rotate on use.
func (c SessionConfig) RotationEnabled() bool {
	return c.RotateRefreshTokens == nil || *c.RotateRefreshTokens
}

// LocalIdentity seeds the in-memory identity provider.
type LocalIdentity struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password-hash"`
}

// IdentityConfig selects and configures the identity provider.
type IdentityConfig struct {
	Provider        string          `yaml:"provider"`
	SupabaseURL     string          `yaml:"supabase-url"`
	SupabaseAnonKey string          `yaml:"supabase-anon-key"`
	Timeout         time.Duration   `yaml:"timeout"`
	Users           []LocalIdentity `yaml:"users"`
}

// LedgerConfig holds coin economy defaults.
type LedgerConfig struct {
	StartingBalance int64 `yaml:"starting-balance"`
	MinWithdrawal   int64 `yaml:"min-withdrawal"`
}

// CoinPackage is a purchasable bundle of coins.
type CoinPackage struct {
	Coins  int64 `yaml:"coins"`
	Amount int64 `yaml:"amount"`
}

// PaymentsConfig configures the payment verification callback.
type PaymentsConfig struct {
	PaystackSecretKey string        `yaml:"paystack-secret-key"`
	PaystackBaseURL   string        `yaml:"paystack-base-url"`
	Currency          string        `yaml:"currency"`
	Timeout           time.Duration `yaml:"timeout"`
	Packages          []CoinPackage `yaml:"packages"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Config is the full application configuration.
type Config struct {
	DatabaseDSN string         `yaml:"database-dsn"`
	Database    DatabaseConfig `yaml:"database"`
	Server      ServerConfig   `yaml:"server"`
	JWT         JWTConfig      `yaml:"jwt"`
	Session     SessionConfig  `yaml:"session"`
	Identity    IdentityConfig `yaml:"identity"`
	Ledger      LedgerConfig   `yaml:"ledger"`
	Payments    PaymentsConfig `yaml:"payments"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// Defaults used when the config omits or invalidates a value.
const (
	defaultPort            = 8080
	defaultShutdownTimeout = 10 * time.Second
	defaultJWTExpiry       = 15 * time.Minute
	defaultRefreshExpiry   = 7 * 24 * time.Hour
	defaultJWTIssuer       = "eriggalive"
	defaultMaxSessions     = 3
	defaultSessionTTL      = 24 * time.Hour
	defaultRememberMeTTL   = 30 * 24 * time.Hour
	defaultIdentityTimeout = 10 * time.Second
	defaultPaystackBaseURL = "https://api.paystack.co"
	defaultCurrency        = "NGN"
	defaultPaymentsTimeout = 15 * time.Second
)

// DSN returns the configured database DSN.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn
	}
	return strings.TrimSpace(c.Database.DSN)
}

// Load reads the YAML config file, applies environment overrides and defaults,
// and validates required values. A missing file is allowed when the environment
// supplies everything required.
func Load(configPath string) (Config, error) {
	var cfg Config

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}
	if url := strings.TrimSpace(os.Getenv(EnvSupabaseURL)); url != "" {
		cfg.Identity.SupabaseURL = url
	}
	if key := strings.TrimSpace(os.Getenv(EnvSupabaseAnonKey)); key != "" {
		cfg.Identity.SupabaseAnonKey = key
	}
	if key := strings.TrimSpace(os.Getenv(EnvPaystackSecretKey)); key != "" {
		cfg.Payments.PaystackSecretKey = key
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.Logging.Level = level
	}
	if portRaw := strings.TrimSpace(os.Getenv(EnvPort)); portRaw != "" {
		if port, errParse := strconv.Atoi(portRaw); errParse == nil {
			cfg.Server.Port = port
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = defaultJWTExpiry
	}
	if cfg.JWT.RefreshTTL <= 0 {
		cfg.JWT.RefreshTTL = defaultRefreshExpiry
	}
	if strings.TrimSpace(cfg.JWT.Issuer) == "" {
		cfg.JWT.Issuer = defaultJWTIssuer
	}
	cfg.Session.Store = strings.ToLower(strings.TrimSpace(cfg.Session.Store))
	if cfg.Session.Store == "" {
		cfg.Session.Store = SessionStoreDatabase
	}
	if cfg.Session.MaxActive <= 0 {
		cfg.Session.MaxActive = defaultMaxSessions
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = defaultSessionTTL
	}
	if cfg.Session.RememberMeTTL <= 0 {
		cfg.Session.RememberMeTTL = defaultRememberMeTTL
	}
	cfg.Identity.Provider = strings.ToLower(strings.TrimSpace(cfg.Identity.Provider))
	if cfg.Identity.Provider == "" {
		cfg.Identity.Provider = IdentityProviderSupabase
	}
	if cfg.Identity.Timeout <= 0 {
		cfg.Identity.Timeout = defaultIdentityTimeout
	}
	if cfg.Ledger.StartingBalance < 0 {
		cfg.Ledger.StartingBalance = 0
	}
	if strings.TrimSpace(cfg.Payments.PaystackBaseURL) == "" {
		cfg.Payments.PaystackBaseURL = defaultPaystackBaseURL
	}
	if strings.TrimSpace(cfg.Payments.Currency) == "" {
		cfg.Payments.Currency = defaultCurrency
	}
	if cfg.Payments.Timeout <= 0 {
		cfg.Payments.Timeout = defaultPaymentsTimeout
	}
}

// Validate checks values that must be present at startup.
func (c Config) Validate() error {
	secret := strings.TrimSpace(c.JWT.Secret)
	if secret == "" {
		return &ConfigurationError{Field: "jwt.secret", Reason: "signing secret is required (set JWT_SECRET)"}
	}
	if len(secret) < MinJWTSecretLength {
		return &ConfigurationError{Field: "jwt.secret", Reason: fmt.Sprintf("signing secret must be at least %d bytes", MinJWTSecretLength)}
	}
	if c.DSN() == "" {
		return &ConfigurationError{Field: "database.dsn", Reason: ErrMissingDatabaseDSN.Error()}
	}
	switch c.Session.Store {
	case SessionStoreDatabase, SessionStoreMemory:
	default:
		return &ConfigurationError{Field: "session.store", Reason: fmt.Sprintf("unsupported store %q", c.Session.Store)}
	}
	switch c.Identity.Provider {
	case IdentityProviderSupabase:
		if strings.TrimSpace(c.Identity.SupabaseURL) == "" {
			return &ConfigurationError{Field: "identity.supabase-url", Reason: "required for supabase provider (set SUPABASE_URL)"}
		}
		if strings.TrimSpace(c.Identity.SupabaseAnonKey) == "" {
			return &ConfigurationError{Field: "identity.supabase-anon-key", Reason: "required for supabase provider (set SUPABASE_ANON_KEY)"}
		}
	case IdentityProviderMemory:
	default:
		return &ConfigurationError{Field: "identity.provider", Reason: fmt.Sprintf("unsupported provider %q", c.Identity.Provider)}
	}
	for i, pkg := range c.Payments.Packages {
		if pkg.Coins <= 0 || pkg.Amount <= 0 {
			return &ConfigurationError{Field: fmt.Sprintf("payments.packages[%d]", i), Reason: "coins and amount must be positive"}
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Field: "server.port", Reason: fmt.Sprintf("invalid port: %d", c.Server.Port)}
	}
	return nil
}
