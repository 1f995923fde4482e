package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RoleStrategyName prefixes role room names and identifies the strategy.
const RoleStrategyName = "io-role"

// RoleStrategy authenticates session JWTs and groups connections by the
// user's role.
type RoleStrategy struct {
	signingKey       []byte
	users            UserStore
	roles            RoleStore
	requireConfirmed bool
}

// RoleOption configures a RoleStrategy during construction.
type RoleOption func(*RoleStrategy)

// WithRequireConfirmed makes authentication reject users whose email is not
// confirmed, mirroring the query API's confirmation setting.
func WithRequireConfirmed(required bool) RoleOption {
	return func(s *RoleStrategy) {
		s.requireConfirmed = required
	}
}

// NewRoleStrategy creates a role strategy verifying session tokens with the
// given HMAC signing key.
func NewRoleStrategy(signingKey []byte, users UserStore, roles RoleStore, opts ...RoleOption) *RoleStrategy {
	s := &RoleStrategy{
		signingKey: signingKey,
		users:      users,
		roles:      roles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the strategy identifier.
func (s *RoleStrategy) Name() string {
	return RoleStrategyName
}

// Authenticate verifies the session token, resolves the user and returns the
// user's role as the identity. The returned identity carries only the role
// id and name; permissions are not populated at handshake time.
func (s *RoleStrategy) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(creds.Token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	user, err := s.users.User(ctx, claims.Subject)
	if err != nil || user == nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if s.requireConfirmed && !user.Confirmed {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if user.Blocked {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	role, err := s.roles.Role(ctx, user.RoleID)
	if err != nil {
		return nil, errors.Join(ErrUnauthorized, err)
	}

	return &Identity{ID: role.ID, Name: role.Name}, nil
}

// Verify checks that the state's ability grants every required scope.
func (s *RoleStrategy) Verify(state AuthState, scopes ...string) error {
	if state.Ability == nil {
		return ErrUnauthorized
	}
	if !state.Ability.CanAll(scopes...) {
		return ErrForbidden
	}
	return nil
}

// RoomName derives the room name from the role name.
func (s *RoleStrategy) RoomName(id *Identity) string {
	return s.Name() + "-" + strings.ToLower(id.Name)
}

// Rooms lists all roles with their permissions populated.
func (s *RoleStrategy) Rooms(ctx context.Context) ([]*Identity, error) {
	roles, err := s.roles.Roles(ctx)
	if err != nil {
		return nil, err
	}

	identities := make([]*Identity, len(roles))
	for i, role := range roles {
		identities[i] = &Identity{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
		}
	}
	return identities, nil
}

// Credentials returns the per-room credential tag.
func (s *RoleStrategy) Credentials(id *Identity) string {
	return s.Name() + "-" + id.ID
}

// Public resolves the public role for anonymous connections.
func (s *RoleStrategy) Public(ctx context.Context) (*Identity, error) {
	role, err := s.roles.PublicRole(ctx)
	if err != nil {
		return nil, err
	}
	return &Identity{ID: role.ID, Name: role.Name}, nil
}
