package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionRevokeReason values describe why a session stopped being active.
const (
	SessionRevokedLogout       = "logout"
	SessionRevokedLogoutAll    = "logout_all"
	SessionRevokedExpired      = "expired"
	SessionRevokedLimit        = "session_limit"
	SessionRevokedRefreshReuse = "refresh_reuse"
	SessionRevokedDevice       = "device_revoked"
)

// Session tracks a server-side login instance.
type Session struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // Session UUID.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user.

	TokenHash      string `gorm:"type:varchar(64);not null;uniqueIndex"` // SHA-256 of the opaque session token.
	RefreshTokenID string `gorm:"type:varchar(36);index"`                // jti of the current refresh token.

	Device    datatypes.JSON `gorm:"type:jsonb"`        // Device metadata (user agent, name).
	IPAddress string         `gorm:"type:varchar(64)"` // Client IP at login.

	Active     bool `gorm:"not null;default:true;index"` // Whether the session is usable.
	RememberMe bool `gorm:"not null;default:false"`      // Extended expiry flag.

	ExpiresAt      time.Time  `gorm:"not null;index"`   // Absolute expiry.
	LastActivityAt time.Time  `gorm:"not null;index"`   // Last successful validation.
	RevokedAt      *time.Time `gorm:"index"`            // Deactivation time.
	RevokedReason  string     `gorm:"type:varchar(32)"` // Deactivation reason.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return s != nil && !now.Before(s.ExpiresAt)
}

// DeviceInfo is the device metadata captured at login.
type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty"`
	Name      string `json:"name,omitempty"`
	IP        string `json:"ip,omitempty"`
}
