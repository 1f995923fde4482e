package ability

import "strings"

const (
	// ScopeDelimiter separates scope parts (e.g., "article.find").
	ScopeDelimiter = "."

	// ScopeWildcard matches everything, either globally ("*") or within a
	// namespace ("article.*").
	ScopeWildcard = "*"
)

// readActions are the action names treated as read operations by convention.
// The convention is carried over from the synchronous query API: an action is
// a read iff its name is one of these. There is no structural read/write flag
// on permissions, only this naming rule.
var readActions = map[string]struct{}{
	"find":    {},
	"findOne": {},
	"count":   {},
}

// Permission is a single action grant attached to a role or API token.
type Permission struct {
	Action string
}

// Ability answers whether a scope is granted by a permission set.
// The zero value and the nil pointer grant nothing.
type Ability struct {
	grants []string
}

// New builds an Ability from a permission set. Empty actions are ignored.
func New(permissions []Permission) *Ability {
	grants := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if action := strings.TrimSpace(p.Action); action != "" {
			grants = append(grants, action)
		}
	}
	return &Ability{grants: grants}
}

// FromActions builds an Ability directly from action strings.
func FromActions(actions ...string) *Ability {
	permissions := make([]Permission, len(actions))
	for i, action := range actions {
		permissions[i] = Permission{Action: action}
	}
	return New(permissions)
}

// Can reports whether the scope is granted, either directly or through a
// wildcard grant.
func (a *Ability) Can(scope string) bool {
	if a == nil || scope == "" {
		return false
	}
	for _, grant := range a.grants {
		if scopeMatches(scope, grant) {
			return true
		}
	}
	return false
}

// CanAll reports whether every scope is granted. The check is conjunctive:
// a single missing scope fails the whole set. An empty scope list passes.
func (a *Ability) CanAll(scopes ...string) bool {
	for _, scope := range scopes {
		if !a.Can(scope) {
			return false
		}
	}
	return true
}

// scopeMatches reports whether a grant covers a scope.
// Matching rules: exact match, global wildcard "*", or namespace wildcard
// such as "article.*" covering "article.find".
func scopeMatches(scope, grant string) bool {
	if scope == grant || grant == ScopeWildcard {
		return true
	}
	if strings.HasSuffix(grant, ScopeWildcard) {
		prefix := strings.TrimSuffix(grant, ScopeWildcard)
		prefix = strings.TrimSuffix(prefix, ScopeDelimiter)
		return strings.HasPrefix(scope, prefix+ScopeDelimiter)
	}
	return false
}

// IsReadScope reports whether the scope's action name marks it as a read
// operation (find, findOne or count). See readActions for the convention.
func IsReadScope(scope string) bool {
	action := scope
	if i := strings.LastIndex(scope, ScopeDelimiter); i >= 0 {
		action = scope[i+1:]
	}
	_, ok := readActions[action]
	return ok
}

// AllReadScopes reports whether every scope in the list is a read scope.
// An empty list does not count as read-only.
func AllReadScopes(scopes []string) bool {
	if len(scopes) == 0 {
		return false
	}
	for _, scope := range scopes {
		if !IsReadScope(scope) {
			return false
		}
	}
	return true
}
