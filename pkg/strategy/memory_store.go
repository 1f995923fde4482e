package strategy

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory RoleStore, UserStore and TokenStore. It is
// safe for concurrent use and intended for composition roots without a
// database and for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	roles  map[string]*Role
	users  map[string]*User
	tokens map[string]*Token // keyed by access-key hash
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:  make(map[string]*Role),
		users:  make(map[string]*User),
		tokens: make(map[string]*Token),
	}
}

// AddRole adds or replaces a role.
func (m *MemoryStore) AddRole(role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = &role
}

// AddUser adds or replaces a user.
func (m *MemoryStore) AddUser(user User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
}

// AddToken adds or replaces a token under the hash of its access key.
func (m *MemoryStore) AddToken(accessKeyHash string, token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[accessKeyHash] = &token
}

// Role returns a role by id.
func (m *MemoryStore) Role(ctx context.Context, id string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	copied := *role
	return &copied, nil
}

// Roles returns all roles.
func (m *MemoryStore) Roles(ctx context.Context) ([]*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := make([]*Role, 0, len(m.roles))
	for _, role := range m.roles {
		copied := *role
		roles = append(roles, &copied)
	}
	return roles, nil
}

// PublicRole returns the role marked public.
func (m *MemoryStore) PublicRole(ctx context.Context) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, role := range m.roles {
		if role.Kind == PublicRoleKind {
			copied := *role
			return &copied, nil
		}
	}
	return nil, ErrRoleNotFound
}

// User returns a user by id.
func (m *MemoryStore) User(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// TokenByHash returns a token by access-key hash.
func (m *MemoryStore) TokenByHash(ctx context.Context, hash string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[hash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *token
	return &copied, nil
}

// ActiveTokens returns tokens that are not expired at the given time.
func (m *MemoryStore) ActiveTokens(ctx context.Context, now time.Time) ([]*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := make([]*Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		if token.Expired(now) {
			continue
		}
		copied := *token
		tokens = append(tokens, &copied)
	}
	return tokens, nil
}

// TouchLastUsed updates a token's last-used timestamp.
func (m *MemoryStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, token := range m.tokens {
		if token.ID == id {
			token.LastUsedAt = at
			return nil
		}
	}
	return ErrTokenNotFound
}
