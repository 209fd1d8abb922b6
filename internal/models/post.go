package models

import "time"

// Post is a community submission that can receive coin votes.
type Post struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthorID uint64 `gorm:"not null;index"`      // Author user ID.
	Author   User   `gorm:"foreignKey:AuthorID"` // Author record.

	Category string `gorm:"type:varchar(64);not null;default:'general';index"` // Feed category.
	Content  string `gorm:"type:text;not null"`                                // Post body.

	VoteCount    int64 `gorm:"not null;default:0"` // Cached count of vote rows.
	CommentCount int64 `gorm:"not null;default:0"` // Cached count of comments.

	Deleted bool `gorm:"not null;default:false;index"` // Soft delete flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
