package store

import (
	"context"
	"errors"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("store: conflict")
)

// UserStore reads and provisions user profiles.
type UserStore interface {
	FindUserByAuthID(ctx context.Context, authID string) (*models.User, error)
	FindUserByID(ctx context.Context, id uint64) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// SessionStore persists login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error
	FindSessionByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	FindSessionByID(ctx context.Context, id string) (*models.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	// DeactivateSession reports whether an active session was deactivated.
	DeactivateSession(ctx context.Context, id, reason string, at time.Time) (bool, error)
	DeactivateUserSessions(ctx context.Context, userID uint64, reason string, at time.Time) (int64, error)
	// ListActiveSessions returns active sessions, most recently used first.
	ListActiveSessions(ctx context.Context, userID uint64) ([]models.Session, error)
	// RotateRefreshTokenID swaps the refresh jti only when it still equals oldID.
	RotateRefreshTokenID(ctx context.Context, sessionID, oldID, newID string) (bool, error)
}

// Store is the persistence surface of the session manager.
type Store interface {
	UserStore
	SessionStore
}

// combined pairs a user store with a separate session store.
type combined struct {
	UserStore
	SessionStore
}

// Combine returns a Store that reads users from users and sessions from sessions.
func Combine(users UserStore, sessions SessionStore) Store {
	return combined{UserStore: users, SessionStore: sessions}
}
