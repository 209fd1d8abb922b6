package watcher

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
)

func TestSettingsWatcher_ReloadsOnChange(t *testing.T) {
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "watcher.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() { internalsettings.StoreDBConfig(time.Time{}, nil) })

	w := NewSettingsWatcher(conn, time.Hour)
	ctx := context.Background()
	if errPoll := w.Poll(ctx, true); errPoll != nil {
		t.Fatalf("initial poll: %v", errPoll)
	}
	if got := internalsettings.VoteCost(); got != internalsettings.DefaultVoteCost {
		t.Fatalf("expected default vote cost, got %d", got)
	}

	if errUpdate := conn.Model(&models.Setting{}).
		Where("key = ?", internalsettings.VoteCostKey).
		Updates(map[string]any{
			"value":      json.RawMessage(`250`),
			"updated_at": time.Now().UTC().Add(time.Minute),
		}).Error; errUpdate != nil {
		t.Fatalf("update setting: %v", errUpdate)
	}
	if errPoll := w.Poll(ctx, false); errPoll != nil {
		t.Fatalf("poll: %v", errPoll)
	}
	if got := internalsettings.VoteCost(); got != 250 {
		t.Fatalf("expected reloaded vote cost 250, got %d", got)
	}
}

func TestSettingsWatcher_StartStop(t *testing.T) {
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "watcher.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() { internalsettings.StoreDBConfig(time.Time{}, nil) })

	w := NewSettingsWatcher(conn, 10*time.Millisecond)
	if errStart := w.Start(context.Background()); errStart != nil {
		t.Fatalf("start: %v", errStart)
	}
	time.Sleep(30 * time.Millisecond)
	w.Stop()
	w.Stop()
}
