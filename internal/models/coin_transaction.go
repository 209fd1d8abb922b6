package models

import (
	"time"

	"gorm.io/datatypes"
)

// CoinTransactionKind classifies a ledger journal entry.
type CoinTransactionKind string

// CoinTransactionKind constants.
const (
	CoinTxSignupBonus      CoinTransactionKind = "signup_bonus"
	CoinTxVoteDebit        CoinTransactionKind = "vote_debit"
	CoinTxVoteCredit       CoinTransactionKind = "vote_credit"
	CoinTxVoteRefund       CoinTransactionKind = "vote_refund"
	CoinTxVoteReversal     CoinTransactionKind = "vote_reversal"
	CoinTxPurchase         CoinTransactionKind = "purchase"
	CoinTxWithdrawal       CoinTransactionKind = "withdrawal"
	CoinTxWithdrawalRefund CoinTransactionKind = "withdrawal_refund"
	CoinTxAdminCredit      CoinTransactionKind = "admin_credit"
	CoinTxAdminDebit       CoinTransactionKind = "admin_debit"
)

// CoinTransaction is an append-only journal row for every balance change.
type CoinTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Affected user ID.

	Kind         CoinTransactionKind `gorm:"type:varchar(32);not null;index"` // Entry kind.
	Amount       int64               `gorm:"not null"`                        // Signed coin delta.
	BalanceAfter int64               `gorm:"not null"`                        // Balance after applying Amount.

	Reference *string `gorm:"type:varchar(191);uniqueIndex"` // Idempotency key (payment reference).
	PostID    *uint64 `gorm:"index"`                         // Related post for vote entries.

	Metadata datatypes.JSON `gorm:"type:jsonb"` // Free-form context.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
