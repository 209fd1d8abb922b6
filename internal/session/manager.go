package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/security"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/store"
	"gorm.io/datatypes"
)

// Config controls session lifetimes and limits.
type Config struct {
	MaxActiveSessions   int
	SessionTTL          time.Duration
	RememberMeTTL       time.Duration
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RotateRefreshTokens bool
	StartingBalance     int64
	DefaultTier         models.Tier
}

// DefaultConfig returns the stock session policy.
func DefaultConfig() Config {
	return Config{
		MaxActiveSessions:   3,
		SessionTTL:          24 * time.Hour,
		RememberMeTTL:       30 * 24 * time.Hour,
		AccessTokenTTL:      15 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		RotateRefreshTokens: true,
		DefaultTier:         models.TierGrassroot,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxActiveSessions <= 0 {
		c.MaxActiveSessions = def.MaxActiveSessions
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.RememberMeTTL <= 0 {
		c.RememberMeTTL = def.RememberMeTTL
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = def.AccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = def.RefreshTokenTTL
	}
	if !c.DefaultTier.Valid() {
		c.DefaultTier = def.DefaultTier
	}
	if c.StartingBalance < 0 {
		c.StartingBalance = 0
	}
	return c
}

// Identity is the resolved caller of a protected request.
type Identity struct {
	User    models.User
	Session models.Session
}

// LoginRequest carries credentials and client metadata.
type LoginRequest struct {
	Email      string
	Password   string
	RememberMe bool
	Device     models.DeviceInfo
	IPAddress  string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	SessionToken     string
	ExpiresIn        int64
	SessionExpiresAt time.Time
	User             models.User
	Session          models.Session
	Evicted          int
}

// RefreshResult is returned by a successful token refresh.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	SessionID    string
}

// Manager issues, validates and revokes login sessions.
type Manager struct {
	store    store.Store
	provider identity.Provider
	codec    *security.TokenCodec
	cfg      Config
	nowFn    func() time.Time
}

// NewManager wires a Manager. nowFn defaults to time.Now.
func NewManager(st store.Store, provider identity.Provider, codec *security.TokenCodec, cfg Config, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Manager{
		store:    st,
		provider: provider,
		codec:    codec,
		cfg:      cfg.withDefaults(),
		nowFn:    nowFn,
	}
}

func (m *Manager) now() time.Time {
	return m.nowFn().UTC()
}

// Login verifies credentials, provisions the profile and opens a session.
func (m *Manager) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	ident, errSignIn := m.provider.SignIn(ctx, email, req.Password)
	if errSignIn != nil {
		if errors.Is(errSignIn, identity.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("session: sign in: %w", errSignIn)
	}

	user, errProvision := m.provisionUser(ctx, ident)
	if errProvision != nil {
		return nil, errProvision
	}
	if errAccount := checkAccount(user); errAccount != nil {
		return nil, errAccount
	}

	now := m.now()
	ttl := m.cfg.SessionTTL
	if req.RememberMe {
		ttl = m.cfg.RememberMeTTL
	}

	sessionToken, errToken := security.NewOpaqueToken()
	if errToken != nil {
		return nil, fmt.Errorf("session: %w", errToken)
	}
	sessionID := uuid.NewString()

	refreshToken, refreshClaims, errRefresh := m.codec.CreateToken(security.Claims{
		SessionID: sessionID,
		Type:      security.TokenTypeRefresh,
	}, m.cfg.RefreshTokenTTL)
	if errRefresh != nil {
		return nil, fmt.Errorf("session: issue refresh token: %w", errRefresh)
	}

	device := req.Device
	if device.IP == "" {
		device.IP = req.IPAddress
	}
	deviceJSON, errDevice := json.Marshal(device)
	if errDevice != nil {
		return nil, fmt.Errorf("session: marshal device: %w", errDevice)
	}

	record := &models.Session{
		ID:             sessionID,
		UserID:         user.ID,
		TokenHash:      security.HashToken(sessionToken),
		RefreshTokenID: refreshClaims.ID,
		Device:         datatypes.JSON(deviceJSON),
		IPAddress:      req.IPAddress,
		Active:         true,
		RememberMe:     req.RememberMe,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
	}
	if errCreate := m.store.CreateSession(ctx, record); errCreate != nil {
		return nil, fmt.Errorf("session: create session: %w", errCreate)
	}

	accessToken, errAccess := m.issueAccessToken(user, sessionID)
	if errAccess != nil {
		return nil, errAccess
	}

	evicted, errLimit := m.enforceLimit(ctx, user.ID, sessionID, now)
	if errLimit != nil {
		return nil, errLimit
	}

	log.WithFields(log.Fields{
		"user_id":     user.ID,
		"session_id":  sessionID,
		"remember_me": req.RememberMe,
		"evicted":     evicted,
	}).Info("session opened")

	return &LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		SessionToken:     sessionToken,
		ExpiresIn:        int64(m.cfg.AccessTokenTTL / time.Second),
		SessionExpiresAt: record.ExpiresAt,
		User:             *user,
		Session:          *record,
		Evicted:          evicted,
	}, nil
}

// ValidateSession resolves the caller behind an opaque session token.
func (m *Manager) ValidateSession(ctx context.Context, sessionToken string) (*Identity, error) {
	if strings.TrimSpace(sessionToken) == "" {
		return nil, ErrInvalidSession
	}
	record, errFind := m.store.FindSessionByTokenHash(ctx, security.HashToken(sessionToken))
	if errFind != nil {
		return nil, notFoundAs(errFind, ErrInvalidSession)
	}
	return m.resolve(ctx, record)
}

// Authenticate resolves the caller behind an access token.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	claims, errVerify := m.codec.VerifyToken(accessToken)
	if errVerify != nil {
		return nil, errVerify
	}
	if claims.Type != security.TokenTypeAccess {
		return nil, security.ErrTokenInvalid
	}
	record, errFind := m.store.FindSessionByID(ctx, claims.SessionID)
	if errFind != nil {
		return nil, notFoundAs(errFind, ErrInvalidSession)
	}
	if record.UserID != claims.UserID {
		return nil, security.ErrTokenInvalid
	}
	return m.resolve(ctx, record)
}

// RefreshToken exchanges a refresh token for a new access token.
func (m *Manager) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, errVerify := m.codec.VerifyToken(refreshToken)
	if errVerify != nil {
		return nil, errVerify
	}
	if claims.Type != security.TokenTypeRefresh {
		return nil, security.ErrTokenInvalid
	}

	record, errFind := m.store.FindSessionByID(ctx, claims.SessionID)
	if errFind != nil {
		return nil, notFoundAs(errFind, ErrInvalidSession)
	}
	if !record.Active {
		return nil, ErrInvalidSession
	}
	now := m.now()
	if record.IsExpired(now) {
		m.deactivate(ctx, record.ID, models.SessionRevokedExpired, now)
		return nil, ErrSessionExpired
	}
	user, errUser := m.activeUser(ctx, record.UserID)
	if errUser != nil {
		return nil, errUser
	}

	result := &RefreshResult{
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.cfg.AccessTokenTTL / time.Second),
		SessionID:    record.ID,
	}

	if m.cfg.RotateRefreshTokens {
		if claims.ID != record.RefreshTokenID {
			m.revokeForReuse(ctx, record, now)
			return nil, ErrInvalidSession
		}
		rotated, rotatedClaims, errIssue := m.codec.CreateToken(security.Claims{
			SessionID: record.ID,
			Type:      security.TokenTypeRefresh,
		}, m.cfg.RefreshTokenTTL)
		if errIssue != nil {
			return nil, fmt.Errorf("session: issue refresh token: %w", errIssue)
		}
		swapped, errSwap := m.store.RotateRefreshTokenID(ctx, record.ID, claims.ID, rotatedClaims.ID)
		if errSwap != nil {
			return nil, fmt.Errorf("session: rotate refresh token: %w", errSwap)
		}
		if !swapped {
			m.revokeForReuse(ctx, record, now)
			return nil, ErrInvalidSession
		}
		result.RefreshToken = rotated
	}

	accessToken, errAccess := m.issueAccessToken(user, record.ID)
	if errAccess != nil {
		return nil, errAccess
	}
	result.AccessToken = accessToken

	if errTouch := m.store.TouchSession(ctx, record.ID, now); errTouch != nil {
		log.WithError(errTouch).WithField("session_id", record.ID).Warn("touch session failed")
	}
	return result, nil
}

// Logout deactivates the session behind sessionToken. Repeated calls are no-ops.
func (m *Manager) Logout(ctx context.Context, sessionToken string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return ErrInvalidSession
	}
	record, errFind := m.store.FindSessionByTokenHash(ctx, security.HashToken(sessionToken))
	if errFind != nil {
		return notFoundAs(errFind, ErrInvalidSession)
	}
	if !record.Active {
		return nil
	}
	if _, errDeactivate := m.store.DeactivateSession(ctx, record.ID, models.SessionRevokedLogout, m.now()); errDeactivate != nil {
		return fmt.Errorf("session: logout: %w", errDeactivate)
	}
	return nil
}

// LogoutSession revokes one of the user's own sessions by id.
func (m *Manager) LogoutSession(ctx context.Context, userID uint64, sessionID string) error {
	record, errFind := m.store.FindSessionByID(ctx, sessionID)
	if errFind != nil {
		return notFoundAs(errFind, ErrInvalidSession)
	}
	if record.UserID != userID {
		return ErrInvalidSession
	}
	if _, errDeactivate := m.store.DeactivateSession(ctx, record.ID, models.SessionRevokedDevice, m.now()); errDeactivate != nil {
		return fmt.Errorf("session: revoke session: %w", errDeactivate)
	}
	return nil
}

// LogoutAllDevices deactivates every active session of the user.
func (m *Manager) LogoutAllDevices(ctx context.Context, userID uint64) (int64, error) {
	count, errDeactivate := m.store.DeactivateUserSessions(ctx, userID, models.SessionRevokedLogoutAll, m.now())
	if errDeactivate != nil {
		return 0, fmt.Errorf("session: logout all: %w", errDeactivate)
	}
	log.WithFields(log.Fields{"user_id": userID, "count": count}).Info("all sessions revoked")
	return count, nil
}

// GetUserSessions lists active, unexpired sessions, most recently used first.
func (m *Manager) GetUserSessions(ctx context.Context, userID uint64) ([]models.Session, error) {
	sessions, errList := m.store.ListActiveSessions(ctx, userID)
	if errList != nil {
		return nil, fmt.Errorf("session: list sessions: %w", errList)
	}
	now := m.now()
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.IsExpired(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

// resolve applies the shared active/expiry/account checks and touches the session.
func (m *Manager) resolve(ctx context.Context, record *models.Session) (*Identity, error) {
	if !record.Active {
		return nil, ErrInvalidSession
	}
	now := m.now()
	if record.IsExpired(now) {
		m.deactivate(ctx, record.ID, models.SessionRevokedExpired, now)
		return nil, ErrSessionExpired
	}
	user, errUser := m.activeUser(ctx, record.UserID)
	if errUser != nil {
		return nil, errUser
	}
	if errTouch := m.store.TouchSession(ctx, record.ID, now); errTouch != nil {
		return nil, fmt.Errorf("session: touch: %w", errTouch)
	}
	record.LastActivityAt = now
	return &Identity{User: *user, Session: *record}, nil
}

func (m *Manager) activeUser(ctx context.Context, userID uint64) (*models.User, error) {
	user, errFind := m.store.FindUserByID(ctx, userID)
	if errFind != nil {
		return nil, notFoundAs(errFind, ErrInvalidSession)
	}
	if errAccount := checkAccount(user); errAccount != nil {
		return nil, errAccount
	}
	return user, nil
}

// enforceLimit expires stale sessions and evicts the least recently used
// until at most MaxActiveSessions remain. keepID is never evicted.
func (m *Manager) enforceLimit(ctx context.Context, userID uint64, keepID string, now time.Time) (int, error) {
	sessions, errList := m.store.ListActiveSessions(ctx, userID)
	if errList != nil {
		return 0, fmt.Errorf("session: list sessions: %w", errList)
	}

	live := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsExpired(now) {
			m.deactivate(ctx, s.ID, models.SessionRevokedExpired, now)
			continue
		}
		if s.ID == keepID {
			continue
		}
		live = append(live, s)
	}

	keep := m.cfg.MaxActiveSessions - 1
	if len(live) <= keep {
		return 0, nil
	}
	evicted := 0
	for _, s := range live[keep:] {
		changed, errDeactivate := m.store.DeactivateSession(ctx, s.ID, models.SessionRevokedLimit, now)
		if errDeactivate != nil {
			return evicted, fmt.Errorf("session: evict session: %w", errDeactivate)
		}
		if changed {
			evicted++
		}
	}
	return evicted, nil
}

func (m *Manager) deactivate(ctx context.Context, id, reason string, now time.Time) {
	if _, errDeactivate := m.store.DeactivateSession(ctx, id, reason, now); errDeactivate != nil {
		log.WithError(errDeactivate).WithFields(log.Fields{"session_id": id, "reason": reason}).Warn("deactivate session failed")
	}
}

func (m *Manager) revokeForReuse(ctx context.Context, record *models.Session, now time.Time) {
	log.WithFields(log.Fields{"user_id": record.UserID, "session_id": record.ID}).Warn("refresh token reuse detected")
	m.deactivate(ctx, record.ID, models.SessionRevokedRefreshReuse, now)
}

func (m *Manager) issueAccessToken(user *models.User, sessionID string) (string, error) {
	token, _, errIssue := m.codec.CreateToken(security.Claims{
		UserID:    user.ID,
		Tier:      int(user.Tier),
		SessionID: sessionID,
		Type:      security.TokenTypeAccess,
	}, m.cfg.AccessTokenTTL)
	if errIssue != nil {
		return "", fmt.Errorf("session: issue access token: %w", errIssue)
	}
	return token, nil
}

func checkAccount(user *models.User) error {
	if user.Banned {
		return ErrAccountBanned
	}
	if !user.Active {
		return ErrAccountInactive
	}
	return nil
}

func notFoundAs(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return fmt.Errorf("session: %w", err)
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, errParse := mail.ParseAddress(email)
	if errParse != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}
