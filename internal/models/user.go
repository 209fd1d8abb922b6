package models

import "time"

// Tier is the ordered membership level of a user.
type Tier int

// Tier constants are ordered; a higher value grants more access.
const (
	// TierGrassroot is the entry tier assigned on first login.
	TierGrassroot Tier = 1
	// TierPioneer is the first paid tier.
	TierPioneer Tier = 2
	// TierElder is the second paid tier.
	TierElder Tier = 3
	// TierBlood is the top tier.
	TierBlood Tier = 4
)

var tierNames = map[Tier]string{
	TierGrassroot: "grassroot",
	TierPioneer:   "pioneer",
	TierElder:     "elder",
	TierBlood:     "blood",
}

// String returns the lowercase tier name.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierNames[t]
	return ok
}

// AtLeast reports whether t ranks at or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t >= other
}

// ParseTier converts a tier name into a Tier.
func ParseTier(name string) (Tier, bool) {
	for tier, tierName := range tierNames {
		if tierName == name {
			return tier, true
		}
	}
	return 0, false
}

// User represents a community member profile stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthID   string `gorm:"type:text;not null;uniqueIndex"` // External identity provider subject.
	Email    string `gorm:"type:text;index"`                // Email address reported by the provider.
	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique public handle.

	Tier        Tier  `gorm:"not null;default:1"`                                                // Membership tier.
	CoinBalance int64 `gorm:"not null;default:0;check:chk_users_coin_balance,coin_balance >= 0"` // Coin wallet balance.

	Active  bool `gorm:"not null;default:true"`  // Whether the user can sign in.
	Banned  bool `gorm:"not null;default:false"` // Moderation ban flag.
	IsAdmin bool `gorm:"not null;default:false"` // Grants access to admin routes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
