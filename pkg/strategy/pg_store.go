package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/pushkit/pkg/ability"
)

// PGConfig configures the PostgreSQL-backed store.
type PGConfig struct {
	ConnectionString string        `env:"PUSHKIT_PG_CONN_URL,required"` // ConnectionString is the connection string to the identity database.
	RetryAttempts    int           `env:"PUSHKIT_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"PUSHKIT_PG_RETRY_INTERVAL" envDefault:"5s"`
}

// ConnectPG establishes a PostgreSQL connection pool with linear backoff so
// transient startup failures don't take the service down.
func ConnectPG(ctx context.Context, cfg PGConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrInvalidPGConfig, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
			}
		}
	}

	return nil, ErrPGConnectionFailed
}

// ErrInvalidPGConfig and ErrPGConnectionFailed report pool setup failures.
var (
	ErrInvalidPGConfig    = errors.New("strategy: invalid postgres config")
	ErrPGConnectionFailed = errors.New("strategy: failed to connect to postgres")
)

// PGStore is a PostgreSQL-backed RoleStore, UserStore and TokenStore.
//
// Expected tables: roles(id, name, kind), users(id, role_id, confirmed,
// blocked), api_tokens(id, name, type, access_key_hash, last_used_at,
// expires_at) and permissions(action, role_id, token_id).
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store over an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Role returns a role by id with its permissions populated.
func (s *PGStore) Role(ctx context.Context, id string) (*Role, error) {
	role := &Role{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, kind FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.Name, &role.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	role.Permissions, err = s.permissions(ctx,
		`SELECT action FROM permissions WHERE role_id = $1`, role.ID)
	if err != nil {
		return nil, err
	}
	return role, nil
}

// Roles returns all roles with their permissions populated.
func (s *PGStore) Roles(ctx context.Context) ([]*Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, kind FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role := &Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Kind); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, role := range roles {
		role.Permissions, err = s.permissions(ctx,
			`SELECT action FROM permissions WHERE role_id = $1`, role.ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// PublicRole returns the role marked public.
func (s *PGStore) PublicRole(ctx context.Context) (*Role, error) {
	role := &Role{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, kind FROM roles WHERE kind = $1`, PublicRoleKind,
	).Scan(&role.ID, &role.Name, &role.Kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

// User returns a user by id.
func (s *PGStore) User(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, role_id, confirmed, blocked FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.RoleID, &user.Confirmed, &user.Blocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// TokenByHash returns a token by access-key hash with its permissions
// populated.
func (s *PGStore) TokenByHash(ctx context.Context, hash string) (*Token, error) {
	token := &Token{}
	var lastUsedAt, expiresAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, type, last_used_at, expires_at FROM api_tokens WHERE access_key_hash = $1`, hash,
	).Scan(&token.ID, &token.Name, &token.Type, &lastUsedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if lastUsedAt != nil {
		token.LastUsedAt = *lastUsedAt
	}
	if expiresAt != nil {
		token.ExpiresAt = *expiresAt
	}

	token.Permissions, err = s.permissions(ctx,
		`SELECT action FROM permissions WHERE token_id = $1`, token.ID)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ActiveTokens returns tokens that are not expired at the given time.
func (s *PGStore) ActiveTokens(ctx context.Context, now time.Time) ([]*Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, type, last_used_at, expires_at FROM api_tokens
		 WHERE expires_at IS NULL OR expires_at >= $1 ORDER BY id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		token := &Token{}
		var lastUsedAt, expiresAt *time.Time
		if err := rows.Scan(&token.ID, &token.Name, &token.Type, &lastUsedAt, &expiresAt); err != nil {
			return nil, err
		}
		if lastUsedAt != nil {
			token.LastUsedAt = *lastUsedAt
		}
		if expiresAt != nil {
			token.ExpiresAt = *expiresAt
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, token := range tokens {
		token.Permissions, err = s.permissions(ctx,
			`SELECT action FROM permissions WHERE token_id = $1`, token.ID)
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// TouchLastUsed updates a token's last-used timestamp.
func (s *PGStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *PGStore) permissions(ctx context.Context, query, id string) ([]ability.Permission, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []ability.Permission
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		permissions = append(permissions, ability.Permission{Action: action})
	}
	return permissions, rows.Err()
}
