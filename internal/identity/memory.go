package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryProvider keeps bcrypt password hashes in memory for local use.
type MemoryProvider struct {
	mu       sync.RWMutex
	accounts map[string]memoryAccount
}

type memoryAccount struct {
	id           string
	email        string
	passwordHash []byte
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{accounts: make(map[string]memoryAccount)}
}

// AddUser registers an account with a plaintext password.
func (p *MemoryProvider) AddUser(id, email, password string) error {
	hash, errHash := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errHash != nil {
		return fmt.Errorf("identity: hash password: %w", errHash)
	}
	return p.AddUserHash(id, email, string(hash))
}

// AddUserHash registers an account with an existing bcrypt hash.
func (p *MemoryProvider) AddUserHash(id, email, passwordHash string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("identity: email is required")
	}
	if _, errCost := bcrypt.Cost([]byte(passwordHash)); errCost != nil {
		return fmt.Errorf("identity: invalid bcrypt hash for %s: %w", email, errCost)
	}
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	p.mu.Lock()
	p.accounts[email] = memoryAccount{id: id, email: email, passwordHash: []byte(passwordHash)}
	p.mu.Unlock()
	return nil
}

// SignIn compares the password against the stored hash.
func (p *MemoryProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return Identity{}, errCtx
	}
	p.mu.RLock()
	account, ok := p.accounts[normalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	if errCompare := bcrypt.CompareHashAndPassword(account.passwordHash, []byte(password)); errCompare != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: account.id, Email: account.email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
