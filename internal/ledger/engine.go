package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultMaxAttempts      = 3
	defaultTransactionLimit = 50
	maxTransactionLimit     = 200
)

// Config tunes the engine.
type Config struct {
	MaxAttempts   int
	MinWithdrawal int64
}

// Engine owns every coin balance mutation.
type Engine struct {
	db            *gorm.DB
	maxAttempts   int
	minWithdrawal int64
	nowFn         func() time.Time
}

// NewEngine constructs an Engine on conn.
func NewEngine(conn *gorm.DB, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.MinWithdrawal <= 0 {
		cfg.MinWithdrawal = 1
	}
	return &Engine{
		db:            conn,
		maxAttempts:   cfg.MaxAttempts,
		minWithdrawal: cfg.MinWithdrawal,
		nowFn:         time.Now,
	}
}

// MinWithdrawal returns the smallest accepted withdrawal.
func (e *Engine) MinWithdrawal() int64 {
	return e.minWithdrawal
}

func (e *Engine) now() time.Time {
	return e.nowFn().UTC()
}

// inTx runs fn in a transaction, retrying transient conflicts.
func (e *Engine) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		errTx := e.db.WithContext(ctx).Transaction(fn)
		if errTx == nil {
			return nil
		}
		if !db.IsRetryable(errTx) {
			return errTx
		}
		lastErr = errTx
		log.WithError(errTx).WithFields(log.Fields{"op": op, "attempt": attempt}).Debug("ledger: retrying transaction")
	}
	log.WithError(lastErr).WithField("op", op).Warn("ledger: retries exhausted")
	return fmt.Errorf("%w: %v", ErrAlreadyProcessing, lastErr)
}

func lockUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockUsers locks the given users in ascending id order.
func lockUsers(tx *gorm.DB, ids ...uint64) (map[uint64]*models.User, error) {
	var users []models.User
	if errFind := lockUpdate(tx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&users).Error; errFind != nil {
		return nil, errFind
	}
	byID := make(map[uint64]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, ErrNotFound
		}
	}
	return byID, nil
}

// addBalance applies a signed delta. Negative deltas are guarded so the
// balance never drops below zero.
func addBalance(tx *gorm.DB, userID uint64, delta int64) (int64, error) {
	query := tx.Model(&models.User{}).Where("id = ?", userID)
	if delta < 0 {
		query = query.Where("coin_balance >= ?", -delta)
	}
	res := query.Update("coin_balance", gorm.Expr("coin_balance + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if delta < 0 {
			return 0, ErrInsufficientFunds
		}
		return 0, ErrNotFound
	}
	var balance int64
	if errScan := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Select("coin_balance").
		Scan(&balance).Error; errScan != nil {
		return 0, errScan
	}
	return balance, nil
}

// journal describes one CoinTransaction row.
type journal struct {
	userID    uint64
	kind      models.CoinTransactionKind
	amount    int64
	balance   int64
	reference string
	postID    *uint64
	metadata  map[string]any
}

func writeJournal(tx *gorm.DB, now time.Time, entries ...journal) ([]models.CoinTransaction, error) {
	rows := make([]models.CoinTransaction, 0, len(entries))
	for _, entry := range entries {
		row := models.CoinTransaction{
			UserID:       entry.userID,
			Kind:         entry.kind,
			Amount:       entry.amount,
			BalanceAfter: entry.balance,
			PostID:       entry.postID,
			CreatedAt:    now,
		}
		if entry.reference != "" {
			ref := entry.reference
			row.Reference = &ref
		}
		if len(entry.metadata) > 0 {
			raw, errMarshal := json.Marshal(entry.metadata)
			if errMarshal != nil {
				return nil, fmt.Errorf("marshal metadata: %w", errMarshal)
			}
			row.Metadata = datatypes.JSON(raw)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if errCreate := tx.Create(&rows).Error; errCreate != nil {
		return nil, errCreate
	}
	return rows, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
