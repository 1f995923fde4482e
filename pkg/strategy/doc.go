// Package strategy implements the pluggable authorization mechanisms used by
// the realtime broadcaster.
//
// A Strategy knows how to authenticate a connecting peer, verify scopes for
// an already-established auth state, name the broadcast room an identity
// belongs to and enumerate all rooms it manages. Two strategies ship with the
// package:
//
//   - RoleStrategy groups connections by user role, authenticated with a
//     short-lived session JWT.
//   - TokenStrategy groups connections by long-lived API token, looked up by
//     a keyed hash of the presented access key.
//
// Strategies read identity and permission state live from their stores on
// every enumeration; nothing is cached between broadcasts. New strategies can
// be added without touching the dispatcher.
package strategy
