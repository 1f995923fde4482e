package strategy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/ability"
	"github.com/dmitrymomot/pushkit/pkg/strategy"
)

const tokenSalt = "test-salt"

// countingTokenStore records TouchLastUsed calls.
type countingTokenStore struct {
	*strategy.MemoryStore
	mu      sync.Mutex
	touches int
}

func (s *countingTokenStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	s.touches++
	s.mu.Unlock()
	return s.MemoryStore.TouchLastUsed(ctx, id, at)
}

func (s *countingTokenStore) touchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touches
}

func tokenFixtures() *countingTokenStore {
	store := &countingTokenStore{MemoryStore: strategy.NewMemoryStore()}
	store.AddToken(strategy.HashKey("full-key", tokenSalt), strategy.Token{
		ID:         "t1",
		Name:       "Deploy Bot",
		Type:       strategy.TokenTypeFullAccess,
		LastUsedAt: time.Now(),
	})
	store.AddToken(strategy.HashKey("read-key", tokenSalt), strategy.Token{
		ID:         "t2",
		Name:       "Reader",
		Type:       strategy.TokenTypeReadOnly,
		LastUsedAt: time.Now(),
	})
	store.AddToken(strategy.HashKey("expired-key", tokenSalt), strategy.Token{
		ID:        "t3",
		Name:      "Old",
		Type:      strategy.TokenTypeFullAccess,
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	return store
}

func TestTokenStrategy_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		s := strategy.NewTokenStrategy(tokenFixtures(), tokenSalt)
		id, err := s.Authenticate(ctx, strategy.Credentials{Token: "full-key"})
		require.NoError(t, err)
		assert.Equal(t, "t1", id.ID)
		assert.Equal(t, strategy.TokenTypeFullAccess, id.Type)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		s := strategy.NewTokenStrategy(tokenFixtures(), tokenSalt)
		_, err := s.Authenticate(ctx, strategy.Credentials{})
		assert.ErrorIs(t, err, strategy.ErrUnauthorized)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()
		s := strategy.NewTokenStrategy(tokenFixtures(), tokenSalt)
		_, err := s.Authenticate(ctx, strategy.Credentials{Token: "wrong-key"})
		assert.ErrorIs(t, err, strategy.ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		s := strategy.NewTokenStrategy(tokenFixtures(), tokenSalt)
		_, err := s.Authenticate(ctx, strategy.Credentials{Token: "expired-key"})
		assert.ErrorIs(t, err, strategy.ErrTokenExpired)
		assert.ErrorIs(t, err, strategy.ErrUnauthorized, "expiry is an authentication failure")
	})
}

func TestTokenStrategy_LastUsedThrottle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stale last-used is refreshed", func(t *testing.T) {
		t.Parallel()
		store := &countingTokenStore{MemoryStore: strategy.NewMemoryStore()}
		store.AddToken(strategy.HashKey("stale-key", tokenSalt), strategy.Token{
			ID:         "t9",
			Name:       "Stale",
			Type:       strategy.TokenTypeFullAccess,
			LastUsedAt: time.Now().Add(-2 * time.Hour),
		})
		s := strategy.NewTokenStrategy(store, tokenSalt)

		_, err := s.Authenticate(ctx, strategy.Credentials{Token: "stale-key"})
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return store.touchCount() == 1
		}, time.Second, 10*time.Millisecond, "stale timestamp is refreshed in the background")
	})

	t.Run("recent last-used is left alone", func(t *testing.T) {
		t.Parallel()
		store := tokenFixtures()
		s := strategy.NewTokenStrategy(store, tokenSalt)

		_, err := s.Authenticate(ctx, strategy.Credentials{Token: "full-key"})
		require.NoError(t, err)

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, store.touchCount())
	})
}

func TestTokenStrategy_Verify(t *testing.T) {
	t.Parallel()
	s := strategy.NewTokenStrategy(strategy.NewMemoryStore(), tokenSalt)

	fullAccess := &strategy.Identity{ID: "t1", Type: strategy.TokenTypeFullAccess}
	readOnly := &strategy.Identity{ID: "t2", Type: strategy.TokenTypeReadOnly}
	custom := &strategy.Identity{ID: "t3", Type: strategy.TokenTypeCustom}
	expired := &strategy.Identity{ID: "t4", Type: strategy.TokenTypeFullAccess, ExpiresAt: time.Now().Add(-time.Minute)}

	tests := []struct {
		name    string
		state   strategy.AuthState
		scopes  []string
		wantErr error
	}{
		{
			name:    "missing identity",
			state:   strategy.AuthState{},
			scopes:  []string{"article.find"},
			wantErr: strategy.ErrUnauthorized,
		},
		{
			name:    "expired token fails regardless of type",
			state:   strategy.AuthState{Identity: expired},
			scopes:  []string{"article.find"},
			wantErr: strategy.ErrTokenExpired,
		},
		{
			name:   "full access passes any scope",
			state:  strategy.AuthState{Identity: fullAccess},
			scopes: []string{"article.create", "article.delete"},
		},
		{
			name:   "read-only passes read scopes",
			state:  strategy.AuthState{Identity: readOnly},
			scopes: []string{"article.find", "article.findOne", "article.count"},
		},
		{
			name:    "read-only fails write scope",
			state:   strategy.AuthState{Identity: readOnly},
			scopes:  []string{"article.find", "article.create"},
			wantErr: strategy.ErrForbidden,
		},
		{
			name:    "read-only fails empty scope list",
			state:   strategy.AuthState{Identity: readOnly},
			wantErr: strategy.ErrForbidden,
		},
		{
			name: "custom passes granted scopes",
			state: strategy.AuthState{
				Identity: custom,
				Ability:  ability.FromActions("article.find"),
			},
			scopes: []string{"article.find"},
		},
		{
			name: "custom fails missing scope",
			state: strategy.AuthState{
				Identity: custom,
				Ability:  ability.FromActions("article.find"),
			},
			scopes:  []string{"article.create"},
			wantErr: strategy.ErrForbidden,
		},
		{
			name:    "custom without ability fails",
			state:   strategy.AuthState{Identity: custom},
			scopes:  []string{"article.find"},
			wantErr: strategy.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := s.Verify(tt.state, tt.scopes...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenStrategy_Rooms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := strategy.NewTokenStrategy(tokenFixtures(), tokenSalt)

	rooms, err := s.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2, "expired tokens are not enumerated")
	for _, room := range rooms {
		assert.NotEqual(t, "t3", room.ID)
	}
}

func TestTokenStrategy_Naming(t *testing.T) {
	t.Parallel()
	s := strategy.NewTokenStrategy(strategy.NewMemoryStore(), tokenSalt)

	id := &strategy.Identity{ID: "t1", Name: "Deploy Bot"}
	assert.Equal(t, "io-token-deploy bot", s.RoomName(id))
	assert.Equal(t, "io-token-deploy-bot", strategy.NormalizeRoomName(s.RoomName(id)))
	assert.Equal(t, "io-token-t1", s.Credentials(id))
}
