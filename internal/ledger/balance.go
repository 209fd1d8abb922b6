package ledger

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

// Entry describes a single-user balance change.
type Entry struct {
	UserID    uint64
	Amount    int64
	Kind      models.CoinTransactionKind
	Reference string
	PostID    *uint64
	Metadata  map[string]any
}

// Credit adds Amount coins to UserID. A non-empty Reference makes the
// credit idempotent: a second call returns ErrDuplicateReference.
func (e *Engine) Credit(ctx context.Context, entry Entry) (*models.CoinTransaction, error) {
	if entry.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return e.apply(ctx, "credit", entry, entry.Amount)
}

// Debit removes Amount coins from UserID, failing with ErrInsufficientFunds
// when the balance would go negative.
func (e *Engine) Debit(ctx context.Context, entry Entry) (*models.CoinTransaction, error) {
	if entry.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return e.apply(ctx, "debit", entry, -entry.Amount)
}

// Adjust applies an admin correction. Positive amounts credit, negative debit.
func (e *Engine) Adjust(ctx context.Context, userID uint64, amount int64, adminID uint64, note string) (*models.CoinTransaction, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	entry := Entry{
		UserID: userID,
		Kind:   models.CoinTxAdminCredit,
		Metadata: map[string]any{
			"admin_id": adminID,
		},
	}
	if note = strings.TrimSpace(note); note != "" {
		entry.Metadata["note"] = note
	}
	if amount < 0 {
		entry.Kind = models.CoinTxAdminDebit
	}
	row, errApply := e.apply(ctx, "adjust", entry, amount)
	if errApply != nil {
		return nil, errApply
	}
	log.WithFields(log.Fields{
		"user_id":  userID,
		"admin_id": adminID,
		"amount":   amount,
	}).Info("ledger: admin adjustment")
	return row, nil
}

func (e *Engine) apply(ctx context.Context, op string, entry Entry, delta int64) (*models.CoinTransaction, error) {
	if entry.UserID == 0 {
		return nil, ErrNotFound
	}
	reference := strings.TrimSpace(entry.Reference)

	var row models.CoinTransaction
	errTx := e.inTx(ctx, op, func(tx *gorm.DB) error {
		if reference != "" {
			var count int64
			if errCount := tx.Model(&models.CoinTransaction{}).
				Where("reference = ?", reference).
				Count(&count).Error; errCount != nil {
				return errCount
			}
			if count > 0 {
				return ErrDuplicateReference
			}
		}
		if _, errLock := lockUsers(tx, entry.UserID); errLock != nil {
			return errLock
		}
		balance, errBalance := addBalance(tx, entry.UserID, delta)
		if errBalance != nil {
			return errBalance
		}
		rows, errJournal := writeJournal(tx, e.now(), journal{
			userID:    entry.UserID,
			kind:      entry.Kind,
			amount:    delta,
			balance:   balance,
			reference: reference,
			postID:    entry.PostID,
			metadata:  entry.Metadata,
		})
		if errJournal != nil {
			if reference != "" && db.IsDuplicateKey(errJournal) {
				return ErrDuplicateReference
			}
			return errJournal
		}
		row = rows[0]
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &row, nil
}

// Balance returns the current coin balance of userID.
func (e *Engine) Balance(ctx context.Context, userID uint64) (int64, error) {
	var user models.User
	if errFind := e.db.WithContext(ctx).
		Select("id", "coin_balance").
		Where("id = ?", userID).
		First(&user).Error; errFind != nil {
		return 0, notFound(errFind)
	}
	return user.CoinBalance, nil
}

// TransactionFilter narrows a journal listing.
type TransactionFilter struct {
	Kind     models.CoinTransactionKind
	BeforeID uint64
	Limit    int
}

// Transactions lists the journal of userID, newest first.
func (e *Engine) Transactions(ctx context.Context, userID uint64, filter TransactionFilter) ([]models.CoinTransaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	query := e.db.WithContext(ctx).
		Model(&models.CoinTransaction{}).
		Where("user_id = ?", userID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.BeforeID > 0 {
		query = query.Where("id < ?", filter.BeforeID)
	}
	var rows []models.CoinTransaction
	if errFind := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// FindTransactionByReference returns the journal row holding reference.
func (e *Engine) FindTransactionByReference(ctx context.Context, reference string) (*models.CoinTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, ErrNotFound
	}
	var row models.CoinTransaction
	if errFind := e.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	return &row, nil
}
