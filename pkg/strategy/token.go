package strategy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/ability"
)

// TokenStrategyName prefixes token room names and identifies the strategy.
const TokenStrategyName = "io-token"

// lastUsedThrottle bounds how often a token's last-used timestamp is written.
// Staleness up to this window is acceptable.
const lastUsedThrottle = time.Hour

// TokenStrategy authenticates long-lived API tokens and groups connections
// by token.
type TokenStrategy struct {
	tokens TokenStore
	salt   string
	logger *slog.Logger
	now    func() time.Time
}

// TokenOption configures a TokenStrategy during construction.
type TokenOption func(*TokenStrategy)

// WithTokenLogger configures the logger used for best-effort side effects.
func WithTokenLogger(logger *slog.Logger) TokenOption {
	return func(s *TokenStrategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenStrategy) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTokenStrategy creates a token strategy. Access keys are looked up by
// HashKey(key, salt); the salt must match the one tokens were stored with.
func NewTokenStrategy(tokens TokenStore, salt string, opts ...TokenOption) *TokenStrategy {
	s := &TokenStrategy{
		tokens: tokens,
		salt:   salt,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashKey computes the keyed hash under which access keys are stored. Tokens
// are never stored or looked up in clear text.
func HashKey(accessKey, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(accessKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// Name returns the strategy identifier.
func (s *TokenStrategy) Name() string {
	return TokenStrategyName
}

// Authenticate looks the API token up by access-key hash and rejects missing
// or expired tokens. As a side effect the token's last-used timestamp is
// refreshed at most once per hour, best-effort in the background.
func (s *TokenStrategy) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	if creds.Token == "" {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := s.tokens.TokenByHash(ctx, HashKey(creds.Token, s.salt))
	if err != nil || token == nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	now := s.now()
	if token.Expired(now) {
		return nil, ErrTokenExpired
	}

	if token.LastUsedAt.IsZero() || now.Sub(token.LastUsedAt) >= lastUsedThrottle {
		go func(id string) {
			touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.tokens.TouchLastUsed(touchCtx, id, now); err != nil {
				s.logger.WarnContext(touchCtx, "failed to update token last-used timestamp",
					slog.String("token_id", id), slog.Any("error", err))
			}
		}(token.ID)
	}

	return &Identity{
		ID:          token.ID,
		Name:        token.Name,
		Type:        token.Type,
		Permissions: token.Permissions,
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// Verify applies the token-type rules: full-access tokens pass any scope,
// read-only tokens pass only read scopes, custom tokens require the ability
// to grant every scope. Expired tokens always fail.
func (s *TokenStrategy) Verify(state AuthState, scopes ...string) error {
	if state.Identity == nil {
		return fmt.Errorf("%w: token not found", ErrUnauthorized)
	}
	if state.Identity.Expired(s.now()) {
		return ErrTokenExpired
	}

	switch state.Identity.Type {
	case TokenTypeFullAccess:
		return nil
	case TokenTypeReadOnly:
		if ability.AllReadScopes(scopes) {
			return nil
		}
		return ErrForbidden
	case TokenTypeCustom:
		if state.Ability == nil {
			return ErrForbidden
		}
		if state.Ability.CanAll(scopes...) {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// RoomName derives the room name from the token name.
func (s *TokenStrategy) RoomName(id *Identity) string {
	return s.Name() + "-" + strings.ToLower(id.Name)
}

// Rooms lists tokens that are not expired, with permissions populated.
func (s *TokenStrategy) Rooms(ctx context.Context) ([]*Identity, error) {
	tokens, err := s.tokens.ActiveTokens(ctx, s.now())
	if err != nil {
		return nil, err
	}

	identities := make([]*Identity, len(tokens))
	for i, token := range tokens {
		identities[i] = &Identity{
			ID:          token.ID,
			Name:        token.Name,
			Type:        token.Type,
			Permissions: token.Permissions,
			ExpiresAt:   token.ExpiresAt,
		}
	}
	return identities, nil
}

// Credentials returns the per-room credential tag.
func (s *TokenStrategy) Credentials(id *Identity) string {
	return s.Name() + "-" + id.ID
}
