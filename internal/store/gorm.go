package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

// GormStore persists users and sessions via GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a GormStore.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

// FindUserByAuthID loads a user by external identity.
func (s *GormStore) FindUserByAuthID(ctx context.Context, authID string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("auth_id = ?", strings.TrimSpace(authID)).First(&user).Error; errFind != nil {
		return nil, translate("find user by auth id", errFind)
	}
	return &user, nil
}

// FindUserByID loads a user by primary key.
func (s *GormStore) FindUserByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		return nil, translate("find user", errFind)
	}
	return &user, nil
}

// CreateUser inserts a user; unique violations return ErrConflict.
// A non-zero starting balance is journaled in the same transaction under
// the reference signup:<user id>.
func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("gorm store: user is nil")
	}
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(user).Error; errCreate != nil {
			return errCreate
		}
		if user.CoinBalance == 0 {
			return nil
		}
		reference := fmt.Sprintf("signup:%d", user.ID)
		return tx.Create(&models.CoinTransaction{
			UserID:       user.ID,
			Kind:         models.CoinTxSignupBonus,
			Amount:       user.CoinBalance,
			BalanceAfter: user.CoinBalance,
			Reference:    &reference,
			CreatedAt:    user.CreatedAt,
		}).Error
	})
	if errTx != nil {
		return translate("create user", errTx)
	}
	return nil
}

// CreateSession inserts a session row.
func (s *GormStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("gorm store: session is nil")
	}
	if errCreate := s.db.WithContext(ctx).Create(session).Error; errCreate != nil {
		return translate("create session", errCreate)
	}
	return nil
}

// FindSessionByTokenHash loads a session by its token digest.
func (s *GormStore) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	var session models.Session
	if errFind := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error; errFind != nil {
		return nil, translate("find session by token", errFind)
	}
	return &session, nil
}

// FindSessionByID loads a session by id.
func (s *GormStore) FindSessionByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; errFind != nil {
		return nil, translate("find session", errFind)
	}
	return &session, nil
}

// TouchSession records activity on an active session.
func (s *GormStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"last_activity_at": at.UTC(),
			"updated_at":       at.UTC(),
		}).Error; errUpdate != nil {
		return translate("touch session", errUpdate)
	}
	return nil
}

// DeactivateSession flips an active session to inactive.
func (s *GormStore) DeactivateSession(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND active = ?", id, true).
		Updates(deactivation(reason, at))
	if result.Error != nil {
		return false, translate("deactivate session", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeactivateUserSessions deactivates every active session of a user.
func (s *GormStore) DeactivateUserSessions(ctx context.Context, userID uint64, reason string, at time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(deactivation(reason, at))
	if result.Error != nil {
		return 0, translate("deactivate user sessions", result.Error)
	}
	return result.RowsAffected, nil
}

// ListActiveSessions returns active sessions ordered by last activity, newest first.
func (s *GormStore) ListActiveSessions(ctx context.Context, userID uint64) ([]models.Session, error) {
	var sessions []models.Session
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("last_activity_at DESC").
		Order("created_at DESC").
		Find(&sessions).Error; errFind != nil {
		return nil, translate("list sessions", errFind)
	}
	return sessions, nil
}

// RotateRefreshTokenID compare-and-swaps the stored refresh jti.
func (s *GormStore) RotateRefreshTokenID(ctx context.Context, sessionID, oldID, newID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND refresh_token_id = ? AND active = ?", sessionID, oldID, true).
		Updates(map[string]any{
			"refresh_token_id": newID,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return false, translate("rotate refresh token", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func deactivation(reason string, at time.Time) map[string]any {
	at = at.UTC()
	return map[string]any{
		"active":         false,
		"revoked_at":     at,
		"revoked_reason": reason,
		"updated_at":     at,
	}
}

func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case db.IsDuplicateKey(err):
		return fmt.Errorf("gorm store: %s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("gorm store: %s: %w", op, err)
	}
}
