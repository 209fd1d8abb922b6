package db

import (
	"path/filepath"
	"testing"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
)

func TestMigrate_SQLiteSeedsSettings(t *testing.T) {
	conn, errOpen := Open("file:" + filepath.Join(t.TempDir(), "migrate.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	defer func() { _ = Close(conn) }()

	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %q", DialectName(conn))
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	// Second run must be a no-op.
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate again: %v", errMigrate)
	}

	var setting models.Setting
	if errFind := conn.Where("key = ?", internalsettings.VoteCostKey).First(&setting).Error; errFind != nil {
		t.Fatalf("find vote cost: %v", errFind)
	}
	if string(setting.Value) != "100" {
		t.Fatalf("expected vote cost 100, got %s", string(setting.Value))
	}
}

func TestMigrate_PreservesEditedSetting(t *testing.T) {
	conn, errOpen := Open("file:" + filepath.Join(t.TempDir(), "edited.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	defer func() { _ = Close(conn) }()
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errUpdate := conn.Model(&models.Setting{}).
		Where("key = ?", internalsettings.VoteCostKey).
		Update("value", []byte("250")).Error; errUpdate != nil {
		t.Fatalf("update setting: %v", errUpdate)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate again: %v", errMigrate)
	}

	var setting models.Setting
	if errFind := conn.Where("key = ?", internalsettings.VoteCostKey).First(&setting).Error; errFind != nil {
		t.Fatalf("find vote cost: %v", errFind)
	}
	if string(setting.Value) != "250" {
		t.Fatalf("expected edited vote cost to survive, got %s", string(setting.Value))
	}
}

func TestMigrate_CoinBalanceCheck(t *testing.T) {
	conn, errOpen := Open("file:" + filepath.Join(t.TempDir(), "check.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	defer func() { _ = Close(conn) }()
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	user := models.User{AuthID: "auth-1", Username: "fan1", Tier: models.TierGrassroot, Active: true}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	if errUpdate := conn.Model(&models.User{}).Where("id = ?", user.ID).Update("coin_balance", -1).Error; errUpdate == nil {
		t.Fatalf("expected negative balance to violate check constraint")
	}
}

func TestIsDuplicateKey_SQLite(t *testing.T) {
	conn, errOpen := Open("file:" + filepath.Join(t.TempDir(), "dup.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	defer func() { _ = Close(conn) }()
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	first := models.User{AuthID: "auth-dup", Username: "dup-a", Active: true}
	if errCreate := conn.Create(&first).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	second := models.User{AuthID: "auth-dup", Username: "dup-b", Active: true}
	errCreate := conn.Create(&second).Error
	if !IsDuplicateKey(errCreate) {
		t.Fatalf("expected duplicate key error, got %v", errCreate)
	}
	if !IsRetryable(errCreate) {
		t.Fatalf("expected duplicate key to be retryable")
	}
}
