package models

import (
	"time"

	"gorm.io/datatypes"
)

// WithdrawalStatus represents the review state of a withdrawal.
type WithdrawalStatus int

// WithdrawalStatus constants define the review lifecycle.
const (
	// WithdrawalStatusPending awaits admin review; coins are already held.
	WithdrawalStatusPending WithdrawalStatus = 1
	// WithdrawalStatusApproved marks a paid-out withdrawal.
	WithdrawalStatusApproved WithdrawalStatus = 2
	// WithdrawalStatusRejected marks a refused withdrawal; coins were refunded.
	WithdrawalStatusRejected WithdrawalStatus = 3
)

// Withdrawal records a request to cash out coins.
type Withdrawal struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Requesting user ID.
	User   User   `gorm:"foreignKey:UserID"` // Requesting user.

	Coins       int64            `gorm:"not null"`                 // Coins held for payout.
	Status      WithdrawalStatus `gorm:"not null;default:1;index"` // Review status.
	Destination datatypes.JSON   `gorm:"type:jsonb"`               // Payout destination details.

	ReviewedBy *uint64    `gorm:"index"`     // Reviewing admin user ID.
	ReviewedAt *time.Time // Review timestamp.
	Note       string     `gorm:"type:text"` // Review note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
