package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/ability"
)

// Credentials is the handshake auth payload a connecting peer presents.
type Credentials struct {
	Strategy string `json:"strategy"`
	Token    string `json:"token"`
}

// TokenType classifies API tokens. Roles have no token type.
type TokenType string

const (
	TokenTypeReadOnly   TokenType = "read-only"
	TokenTypeFullAccess TokenType = "full-access"
	TokenTypeCustom     TokenType = "custom"
)

// Identity is an authenticated principal and, equivalently, one broadcast
// room grouping: a role or an API token.
type Identity struct {
	ID          string
	Name        string
	Type        TokenType // zero for role identities
	Permissions []ability.Permission
	ExpiresAt   time.Time // zero means no expiry
}

// Expired reports whether the identity's credential has expired at the given
// time. Identities without an expiry never expire.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(now)
}

// Ability builds a fresh permission predicate from the identity's current
// permission set.
func (id *Identity) Ability() *ability.Ability {
	return ability.New(id.Permissions)
}

// AuthState is the per-room authorization state passed to Verify during a
// broadcast. The ability is recomputed for every emission.
type AuthState struct {
	Identity *Identity
	Ability  *ability.Ability
}

// Strategy is one authorization mechanism. Implementations must be safe for
// concurrent use; the dispatcher evaluates strategies on every mutation and
// the handshake authenticates connections concurrently.
type Strategy interface {
	// Name returns the strategy identifier used as the room name prefix.
	Name() string

	// Authenticate verifies the presented credentials and resolves them to
	// an identity. Failures are reported as ErrUnauthorized.
	Authenticate(ctx context.Context, creds Credentials) (*Identity, error)

	// Verify checks that the auth state grants every required scope. The
	// check is conjunctive. Failures are ErrUnauthorized when no identity or
	// ability is established and ErrForbidden when scopes are missing.
	Verify(state AuthState, scopes ...string) error

	// RoomName derives the broadcast room name for an identity.
	RoomName(id *Identity) string

	// Rooms enumerates all identities this strategy currently manages, with
	// permissions populated, read live from the backing store.
	Rooms(ctx context.Context) ([]*Identity, error)

	// Credentials returns an opaque per-room tag forwarded to the sanitizer
	// for audit context.
	Credentials(id *Identity) string
}

// PublicResolver is implemented by strategies that can resolve an anonymous
// connection to a public identity.
type PublicResolver interface {
	Public(ctx context.Context) (*Identity, error)
}

// Role is a user role with its granted permissions.
type Role struct {
	ID          string
	Name        string
	Kind        string // e.g. "public", "authenticated"
	Permissions []ability.Permission
}

// PublicRoleKind marks the role anonymous connections resolve to.
const PublicRoleKind = "public"

// User is the minimal account view the role strategy needs.
type User struct {
	ID        string
	RoleID    string
	Confirmed bool
	Blocked   bool
}

// Token is a long-lived API credential.
type Token struct {
	ID          string
	Name        string
	Type        TokenType
	Permissions []ability.Permission
	LastUsedAt  time.Time
	ExpiresAt   time.Time // zero means no expiry
}

// Expired reports whether the token has expired at the given time.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}

// RoleStore provides live access to roles and their permissions.
type RoleStore interface {
	Role(ctx context.Context, id string) (*Role, error)
	Roles(ctx context.Context) ([]*Role, error)
	PublicRole(ctx context.Context) (*Role, error)
}

// UserStore provides live access to user accounts.
type UserStore interface {
	User(ctx context.Context, id string) (*User, error)
}

// TokenStore provides live access to API tokens.
type TokenStore interface {
	// TokenByHash looks a token up by the keyed hash of its access key.
	TokenByHash(ctx context.Context, hash string) (*Token, error)

	// ActiveTokens lists tokens that are not expired at the given time,
	// with permissions populated.
	ActiveTokens(ctx context.Context, now time.Time) ([]*Token, error)

	// TouchLastUsed updates a token's last-used timestamp.
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// NormalizeRoomName converts a room name into a transport channel id by
// replacing every space with a dash.
func NormalizeRoomName(room string) string {
	return strings.ReplaceAll(room, " ", "-")
}
