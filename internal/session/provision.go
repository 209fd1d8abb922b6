package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/identity"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
	"github.com/stevensoneremeh/eriggalive-sub000/internal/store"
)

const (
	maxUsernameLength   = 24
	maxProvisionRetries = 5
)

// provisionUser returns the profile for ident, creating it on first login.
func (m *Manager) provisionUser(ctx context.Context, ident identity.Identity) (*models.User, error) {
	user, errFind := m.store.FindUserByAuthID(ctx, ident.ID)
	if errFind == nil {
		return user, nil
	}
	if !errors.Is(errFind, store.ErrNotFound) {
		return nil, fmt.Errorf("session: find user: %w", errFind)
	}

	base := usernameFor(ident)
	for attempt := 0; attempt < maxProvisionRetries; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%s", truncate(base, maxUsernameLength-7), uuid.NewString()[:6])
		}
		created := &models.User{
			AuthID:      ident.ID,
			Email:       ident.Email,
			Username:    candidate,
			Tier:        m.cfg.DefaultTier,
			CoinBalance: m.cfg.StartingBalance,
			Active:      true,
		}
		errCreate := m.store.CreateUser(ctx, created)
		if errCreate == nil {
			log.WithFields(log.Fields{"user_id": created.ID, "username": created.Username}).Info("user provisioned")
			return created, nil
		}
		if !errors.Is(errCreate, store.ErrConflict) {
			return nil, fmt.Errorf("session: create user: %w", errCreate)
		}
		// A concurrent login may have provisioned the same identity.
		if existing, errRetry := m.store.FindUserByAuthID(ctx, ident.ID); errRetry == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("session: could not allocate username for %s", ident.ID)
}

func usernameFor(ident identity.Identity) string {
	raw := ident.Username
	if raw == "" {
		raw = ident.Email
		if at := strings.Index(raw, "@"); at >= 0 {
			raw = raw[:at]
		}
	}
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteRune('_')
		}
	}
	name := truncate(b.String(), maxUsernameLength)
	if name == "" {
		name = "fan"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
