package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
)

var (
	// ErrTokenMalformed is returned when a token cannot be decoded.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for bad signatures, algorithms or issuers.
	ErrTokenInvalid = errors.New("token invalid")
)

// ConfigurationError reports a fatal codec misconfiguration.
type ConfigurationError = config.ConfigurationError

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	// TokenTypeAccess authorizes API calls for a short time.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh exchanges for a new access token.
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the payload carried by access and refresh tokens.
type Claims struct {
	UserID    uint64    `json:"uid,omitempty"`
	Tier      int       `json:"tier,omitempty"`
	SessionID string    `json:"sid"`
	Type      TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies HS256 tokens.
type TokenCodec struct {
	secret []byte
	issuer string
	nowFn  func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec validates the secret and returns a codec.
func NewTokenCodec(secret, issuer string, nowFn func() time.Time) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, &ConfigurationError{Field: "jwt.secret", Reason: "signing secret is required"}
	}
	if len(secret) < config.MinJWTSecretLength {
		return nil, &ConfigurationError{Field: "jwt.secret", Reason: fmt.Sprintf("signing secret must be at least %d bytes", config.MinJWTSecretLength)}
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(nowFn),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		nowFn:  nowFn,
		parser: jwt.NewParser(opts...),
	}, nil
}

// CreateToken stamps iat, exp, jti and issuer on claims and signs them.
func (c *TokenCodec) CreateToken(claims Claims, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("create token: ttl must be positive")
	}
	now := c.nowFn().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString(c.secret)
	if errSign != nil {
		return "", nil, fmt.Errorf("create token: %w", errSign)
	}
	return signed, &claims, nil
}

// VerifyToken checks the signature and expiry and returns the claims.
func (c *TokenCodec) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, errParse := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	})
	if errParse != nil {
		switch {
		case errors.Is(errParse, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, errParse)
		case errors.Is(errParse, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, errParse)
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NewOpaqueToken returns 32 random bytes encoded as base64url.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, errRead := rand.Read(buf); errRead != nil {
		return "", fmt.Errorf("generate token: %w", errRead)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
