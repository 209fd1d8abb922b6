package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/config"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"gorm.io/gorm"
)

// ErrUserNotProvisioned means the account has never signed in.
var ErrUserNotProvisioned = errors.New("user not found; sign in once before promoting")

// PromoteAdmin grants (or revokes) admin access for the user with email.
func PromoteAdmin(ctx context.Context, cfg config.Config, email string, grant bool) error {
	conn, errOpen := db.Open(cfg.DSN())
	if errOpen != nil {
		return errOpen
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return SetAdminWithConn(ctx, conn, email, grant)
}

// SetAdminWithConn updates the admin flag of the user with email.
func SetAdminWithConn(ctx context.Context, conn *gorm.DB, email string, grant bool) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return fmt.Errorf("email is required")
	}

	res := conn.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", normalized).
		Updates(map[string]any{"is_admin": grant, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update admin flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotProvisioned
	}
	log.WithFields(log.Fields{"email": normalized, "admin": grant}).Info("admin flag updated")
	return nil
}

// HasAdmin reports whether at least one admin account exists.
func HasAdmin(ctx context.Context, conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}
