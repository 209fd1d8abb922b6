package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stevensoneremeh/eriggalive-sub000/internal/models"
)

// MemoryStore keeps users and sessions in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	nextUserID uint64
	users      map[uint64]models.User
	sessions   map[string]models.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint64]models.User),
		sessions: make(map[string]models.Session),
	}
}

// FindUserByAuthID loads a user by external identity.
func (s *MemoryStore) FindUserByAuthID(_ context.Context, authID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	authID = strings.TrimSpace(authID)
	for _, user := range s.users {
		if user.AuthID == authID {
			found := user
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// FindUserByID loads a user by id.
func (s *MemoryStore) FindUserByID(_ context.Context, id uint64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// CreateUser assigns an id and stores the user.
func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.AuthID == user.AuthID || existing.Username == user.Username {
			return ErrConflict
		}
	}
	s.nextUserID++
	now := time.Now().UTC()
	user.ID = s.nextUserID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

// PutUser replaces a stored user.
func (s *MemoryStore) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID > s.nextUserID {
		s.nextUserID = user.ID
	}
	s.users[user.ID] = user
}

// CreateSession stores a session.
func (s *MemoryStore) CreateSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return ErrConflict
	}
	for _, existing := range s.sessions {
		if existing.TokenHash == session.TokenHash {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	s.sessions[session.ID] = *session
	return nil
}

// FindSessionByTokenHash loads a session by token digest.
func (s *MemoryStore) FindSessionByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.TokenHash == tokenHash {
			found := session
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// FindSessionByID loads a session by id.
func (s *MemoryStore) FindSessionByID(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

// TouchSession records activity on an active session.
func (s *MemoryStore) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || !session.Active {
		return nil
	}
	session.LastActivityAt = at.UTC()
	session.UpdatedAt = at.UTC()
	s.sessions[id] = session
	return nil
}

// DeactivateSession flips an active session to inactive.
func (s *MemoryStore) DeactivateSession(_ context.Context, id, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || !session.Active {
		return false, nil
	}
	s.sessions[id] = revoke(session, reason, at)
	return true, nil
}

// DeactivateUserSessions deactivates every active session of a user.
func (s *MemoryStore) DeactivateUserSessions(_ context.Context, userID uint64, reason string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, session := range s.sessions {
		if session.UserID != userID || !session.Active {
			continue
		}
		s.sessions[id] = revoke(session, reason, at)
		count++
	}
	return count, nil
}

// ListActiveSessions returns active sessions, most recently used first.
func (s *MemoryStore) ListActiveSessions(_ context.Context, userID uint64) ([]models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID && session.Active {
			out = append(out, session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RotateRefreshTokenID compare-and-swaps the stored refresh jti.
func (s *MemoryStore) RotateRefreshTokenID(_ context.Context, sessionID, oldID, newID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || !session.Active || session.RefreshTokenID != oldID {
		return false, nil
	}
	session.RefreshTokenID = newID
	session.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = session
	return true, nil
}

func revoke(session models.Session, reason string, at time.Time) models.Session {
	revokedAt := at.UTC()
	session.Active = false
	session.RevokedAt = &revokedAt
	session.RevokedReason = reason
	session.UpdatedAt = revokedAt
	return session
}
