package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestWithdrawal holds coins from userID and records a pending withdrawal.
func (e *Engine) RequestWithdrawal(ctx context.Context, userID uint64, coins int64, destination map[string]any) (*models.Withdrawal, error) {
	if coins <= 0 || coins < e.minWithdrawal {
		return nil, ErrInvalidAmount
	}
	var rawDestination datatypes.JSON
	if len(destination) > 0 {
		raw, errMarshal := json.Marshal(destination)
		if errMarshal != nil {
			return nil, fmt.Errorf("marshal destination: %w", errMarshal)
		}
		rawDestination = datatypes.JSON(raw)
	}

	var withdrawal models.Withdrawal
	errTx := e.inTx(ctx, "withdraw", func(tx *gorm.DB) error {
		if _, errLock := lockUsers(tx, userID); errLock != nil {
			return errLock
		}
		balance, errDebit := addBalance(tx, userID, -coins)
		if errDebit != nil {
			return errDebit
		}
		now := e.now()
		withdrawal = models.Withdrawal{
			UserID:      userID,
			Coins:       coins,
			Status:      models.WithdrawalStatusPending,
			Destination: rawDestination,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if errCreate := tx.Create(&withdrawal).Error; errCreate != nil {
			return errCreate
		}
		_, errJournal := writeJournal(tx, now, journal{
			userID:    userID,
			kind:      models.CoinTxWithdrawal,
			amount:    -coins,
			balance:   balance,
			reference: fmt.Sprintf("withdrawal:%d", withdrawal.ID),
		})
		return errJournal
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"user_id":       userID,
		"withdrawal_id": withdrawal.ID,
		"coins":         coins,
	}).Info("ledger: withdrawal requested")
	return &withdrawal, nil
}

// ResolveWithdrawal approves or rejects a pending withdrawal. Rejection
// refunds the held coins.
func (e *Engine) ResolveWithdrawal(ctx context.Context, id uint64, adminID uint64, approve bool, note string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	errTx := e.inTx(ctx, "resolve_withdrawal", func(tx *gorm.DB) error {
		if errFind := lockUpdate(tx).Where("id = ?", id).First(&withdrawal).Error; errFind != nil {
			return notFound(errFind)
		}
		if withdrawal.Status != models.WithdrawalStatusPending {
			return ErrWithdrawalResolved
		}
		now := e.now()
		status := models.WithdrawalStatusApproved
		if !approve {
			status = models.WithdrawalStatusRejected
		}
		reviewer := adminID
		res := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", withdrawal.ID, models.WithdrawalStatusPending).
			Updates(map[string]any{
				"status":      status,
				"reviewed_by": &reviewer,
				"reviewed_at": &now,
				"note":        strings.TrimSpace(note),
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrWithdrawalResolved
		}
		withdrawal.Status = status
		withdrawal.ReviewedBy = &reviewer
		withdrawal.ReviewedAt = &now
		withdrawal.Note = strings.TrimSpace(note)
		withdrawal.UpdatedAt = now

		if approve {
			return nil
		}
		if _, errLock := lockUsers(tx, withdrawal.UserID); errLock != nil {
			return errLock
		}
		balance, errCredit := addBalance(tx, withdrawal.UserID, withdrawal.Coins)
		if errCredit != nil {
			return errCredit
		}
		_, errJournal := writeJournal(tx, now, journal{
			userID:    withdrawal.UserID,
			kind:      models.CoinTxWithdrawalRefund,
			amount:    withdrawal.Coins,
			balance:   balance,
			reference: fmt.Sprintf("withdrawal_refund:%d", withdrawal.ID),
			metadata:  map[string]any{"admin_id": adminID},
		})
		return errJournal
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"withdrawal_id": withdrawal.ID,
		"admin_id":      adminID,
		"approved":      approve,
	}).Info("ledger: withdrawal resolved")
	return &withdrawal, nil
}

// ListWithdrawals returns withdrawals newest first. A zero status lists all;
// a zero userID lists every user.
func (e *Engine) ListWithdrawals(ctx context.Context, userID uint64, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	query := e.db.WithContext(ctx).Model(&models.Withdrawal{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if status != 0 {
		query = query.Where("status = ?", status)
	}
	var rows []models.Withdrawal
	if errFind := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
