package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

func schemaModels() []any {
	return []any{
		&models.User{},
		&models.Post{},
		&models.Vote{},
		&models.Session{},
		&models.CoinTransaction{},
		&models.Withdrawal{},
		&models.Setting{},
	}
}

// ddl defines an index or DDL statement to apply.
type ddl struct {
	name string // Human-readable name for error reporting.
	sql  string // SQL to execute.
}

// sharedIndexes are valid on both dialects.
var sharedIndexes = []ddl{
	{
		name: "idx_sessions_user_active_last_activity",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_sessions_user_active_last_activity
			ON sessions (user_id, active, last_activity_at DESC)
		`,
	},
	{
		name: "idx_coin_transactions_user_created",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_coin_transactions_user_created
			ON coin_transactions (user_id, created_at DESC, id DESC)
		`,
	},
	{
		name: "idx_posts_deleted_created",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_posts_deleted_created
			ON posts (deleted, created_at DESC, id DESC)
		`,
	},
	{
		name: "idx_withdrawals_status_created",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_withdrawals_status_created
			ON withdrawals (status, created_at DESC)
		`,
	},
	{
		name: "idx_settings_updated_at_key",
		sql: `
			CREATE INDEX IF NOT EXISTS idx_settings_updated_at_key
			ON settings (updated_at DESC, key DESC)
		`,
	},
}

// migratePostgres applies PostgreSQL schema, constraints and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	ddls := append([]ddl{
		{
			name: "chk_posts_vote_count",
			sql: `
				DO $$
				BEGIN
					IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_posts_vote_count') THEN
						ALTER TABLE posts ADD CONSTRAINT chk_posts_vote_count CHECK (vote_count >= 0);
					END IF;
				END $$;
			`,
		},
		{
			name: "chk_withdrawals_coins",
			sql: `
				DO $$
				BEGIN
					IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_withdrawals_coins') THEN
						ALTER TABLE withdrawals ADD CONSTRAINT chk_withdrawals_coins CHECK (coins > 0);
					END IF;
				END $$;
			`,
		},
		{
			name: "idx_sessions_active_expires",
			sql: `
				CREATE INDEX IF NOT EXISTS idx_sessions_active_expires
				ON sessions (expires_at)
				WHERE active = true
			`,
		},
	}, sharedIndexes...)
	if errDDL := applyDDL(conn, ddls); errDDL != nil {
		return errDDL
	}
	return ensureDefaultSettings(conn)
}

// migrateSQLite applies the SQLite schema and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errDDL := applyDDL(conn, sharedIndexes); errDDL != nil {
		return errDDL
	}
	return ensureDefaultSettings(conn)
}

func applyDDL(conn *gorm.DB, ddls []ddl) error {
	for _, stmt := range ddls {
		if errExec := conn.Exec(stmt.sql).Error; errExec != nil {
			return fmt.Errorf("db: apply %s: %w", stmt.name, errExec)
		}
	}
	return nil
}

// ensureDefaultSettings seeds runtime settings without overwriting admin edits.
func ensureDefaultSettings(conn *gorm.DB) error {
	intSettings := []struct {
		key   string
		value int
	}{
		{internalsettings.VoteCostKey, internalsettings.DefaultVoteCost},
		{internalsettings.LoginRateLimitKey, internalsettings.DefaultLoginRateLimit},
		{internalsettings.LoginRateWindowKey, internalsettings.DefaultLoginRateWindowSeconds},
		{internalsettings.VoteRateLimitKey, internalsettings.DefaultVoteRateLimit},
		{internalsettings.VoteRateWindowKey, internalsettings.DefaultVoteRateWindowSeconds},
	}
	for _, item := range intSettings {
		if errSeed := ensureSetting(conn, item.key, item.value); errSeed != nil {
			return errSeed
		}
	}
	return ensureSetting(conn, internalsettings.RateLimitRedisEnabledKey, false)
}

// ensureSetting inserts key with value when missing or null.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := json.RawMessage(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}
