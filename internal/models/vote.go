package models

import "time"

// Vote records a single coin-backed endorsement of a post.
// The (voter_id, post_id) pair is unique.
type Vote struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	VoterID uint64 `gorm:"not null;uniqueIndex:idx_votes_voter_post,priority:1"`       // Voting user ID.
	PostID  uint64 `gorm:"not null;uniqueIndex:idx_votes_voter_post,priority:2;index"` // Voted post ID.

	Amount int64 `gorm:"not null"` // Coins transferred when the vote was cast.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
