package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/db"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	conn, errOpen := db.Open("file:" + filepath.Join(t.TempDir(), "store.db"))
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewGormStore(conn)
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("gorm", func(t *testing.T) { fn(t, newGormStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func TestStore_Users(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		user := &models.User{AuthID: "auth-1", Email: "a@b.co", Username: "fan", Tier: models.TierGrassroot, Active: true, CoinBalance: 10}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user: %v", err)
		}
		if user.ID == 0 {
			t.Fatalf("expected id to be assigned")
		}

		byAuth, err := s.FindUserByAuthID(ctx, "auth-1")
		if err != nil {
			t.Fatalf("find by auth id: %v", err)
		}
		if byAuth.ID != user.ID || byAuth.CoinBalance != 10 {
			t.Fatalf("unexpected user: %+v", byAuth)
		}
		if _, errMissing := s.FindUserByID(ctx, user.ID+100); !errors.Is(errMissing, ErrNotFound) {
			t.Fatalf("expected not found, got %v", errMissing)
		}

		dup := &models.User{AuthID: "auth-1", Username: "other", Active: true}
		if errDup := s.CreateUser(ctx, dup); !errors.Is(errDup, ErrConflict) {
			t.Fatalf("expected conflict, got %v", errDup)
		}
	})
}

func TestGormStore_CreateUserJournalsStartingBalance(t *testing.T) {
	s := newGormStore(t)
	ctx := context.Background()
	funded := &models.User{AuthID: "auth-funded", Username: "funded", Tier: models.TierGrassroot, Active: true, CoinBalance: 100}
	if err := s.CreateUser(ctx, funded); err != nil {
		t.Fatalf("create funded user: %v", err)
	}
	empty := &models.User{AuthID: "auth-empty", Username: "empty", Tier: models.TierGrassroot, Active: true}
	if err := s.CreateUser(ctx, empty); err != nil {
		t.Fatalf("create empty user: %v", err)
	}

	var rows []models.CoinTransaction
	if err := s.db.Where("user_id IN ?", []uint64{funded.ID, empty.ID}).Find(&rows).Error; err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one journal row, got %d", len(rows))
	}
	row := rows[0]
	if row.UserID != funded.ID || row.Kind != models.CoinTxSignupBonus || row.Amount != 100 || row.BalanceAfter != 100 {
		t.Fatalf("unexpected journal row %+v", row)
	}
	if row.Reference == nil || *row.Reference != fmt.Sprintf("signup:%d", funded.ID) {
		t.Fatalf("unexpected reference %v", row.Reference)
	}
}

func TestStore_SessionLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		user := &models.User{AuthID: "auth-s", Username: "sess", Active: true}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user: %v", err)
		}

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"s-1", "s-2", "s-3"} {
			session := &models.Session{
				ID:             id,
				UserID:         user.ID,
				TokenHash:      "hash-" + id,
				RefreshTokenID: "jti-" + id,
				Active:         true,
				ExpiresAt:      base.Add(24 * time.Hour),
				LastActivityAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := s.CreateSession(ctx, session); err != nil {
				t.Fatalf("create session %s: %v", id, err)
			}
		}

		active, err := s.ListActiveSessions(ctx, user.ID)
		if err != nil {
			t.Fatalf("list sessions: %v", err)
		}
		if len(active) != 3 || active[0].ID != "s-3" || active[2].ID != "s-1" {
			t.Fatalf("expected newest first, got %+v", active)
		}

		if errTouch := s.TouchSession(ctx, "s-1", base.Add(time.Hour)); errTouch != nil {
			t.Fatalf("touch: %v", errTouch)
		}
		active, _ = s.ListActiveSessions(ctx, user.ID)
		if active[0].ID != "s-1" {
			t.Fatalf("expected touched session first, got %s", active[0].ID)
		}

		found, err := s.FindSessionByTokenHash(ctx, "hash-s-2")
		if err != nil || found.ID != "s-2" {
			t.Fatalf("find by token hash: %v %+v", err, found)
		}

		changed, err := s.DeactivateSession(ctx, "s-2", models.SessionRevokedLogout, base)
		if err != nil || !changed {
			t.Fatalf("deactivate: changed=%v err=%v", changed, err)
		}
		changed, err = s.DeactivateSession(ctx, "s-2", models.SessionRevokedLogout, base)
		if err != nil || changed {
			t.Fatalf("second deactivate should be a no-op: changed=%v err=%v", changed, err)
		}
		revoked, _ := s.FindSessionByID(ctx, "s-2")
		if revoked.Active || revoked.RevokedReason != models.SessionRevokedLogout || revoked.RevokedAt == nil {
			t.Fatalf("unexpected revoked session: %+v", revoked)
		}

		count, err := s.DeactivateUserSessions(ctx, user.ID, models.SessionRevokedLogoutAll, base)
		if err != nil || count != 2 {
			t.Fatalf("deactivate all: count=%d err=%v", count, err)
		}
		active, _ = s.ListActiveSessions(ctx, user.ID)
		if len(active) != 0 {
			t.Fatalf("expected no active sessions, got %d", len(active))
		}
		if _, errMissing := s.FindSessionByID(ctx, "nope"); !errors.Is(errMissing, ErrNotFound) {
			t.Fatalf("expected not found, got %v", errMissing)
		}
	})
}

func TestStore_RotateRefreshTokenID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		user := &models.User{AuthID: "auth-r", Username: "rot", Active: true}
		if err := s.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user: %v", err)
		}
		now := time.Now().UTC()
		session := &models.Session{ID: "r-1", UserID: user.ID, TokenHash: "hash-r", RefreshTokenID: "old", Active: true, ExpiresAt: now.Add(time.Hour), LastActivityAt: now}
		if err := s.CreateSession(ctx, session); err != nil {
			t.Fatalf("create session: %v", err)
		}

		swapped, err := s.RotateRefreshTokenID(ctx, "r-1", "old", "new")
		if err != nil || !swapped {
			t.Fatalf("rotate: swapped=%v err=%v", swapped, err)
		}
		swapped, err = s.RotateRefreshTokenID(ctx, "r-1", "old", "newer")
		if err != nil || swapped {
			t.Fatalf("stale rotate must fail: swapped=%v err=%v", swapped, err)
		}
		found, _ := s.FindSessionByID(ctx, "r-1")
		if found.RefreshTokenID != "new" {
			t.Fatalf("expected jti new, got %q", found.RefreshTokenID)
		}
	})
}

func TestCombine(t *testing.T) {
	users := NewMemoryStore()
	sessions := NewMemoryStore()
	s := Combine(users, sessions)

	ctx := context.Background()
	user := &models.User{AuthID: "auth-c", Username: "comb", Active: true}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := users.FindUserByID(ctx, user.ID); err != nil {
		t.Fatalf("expected user in user store: %v", err)
	}
	if _, err := sessions.FindUserByID(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected session store to have no users, got %v", err)
	}
}
