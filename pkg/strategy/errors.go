package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when an identity cannot be established or
	// the presented credential is invalid.
	ErrUnauthorized = errors.New("strategy: unauthorized")

	// ErrForbidden is returned when an identity is established but lacks a
	// required scope.
	ErrForbidden = errors.New("strategy: forbidden")

	// ErrTokenExpired is returned for expired API tokens. It matches
	// ErrUnauthorized under errors.Is.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthorized)

	// ErrRoleNotFound is returned when a role does not exist.
	ErrRoleNotFound = errors.New("strategy: role not found")

	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("strategy: user not found")

	// ErrTokenNotFound is returned when no token matches the given hash.
	ErrTokenNotFound = errors.New("strategy: token not found")
)
