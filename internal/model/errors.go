package model

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateToken means a refresh token value was stored twice. The value space
	// makes a collision a bug, never a legitimate race.
	ErrDuplicateToken = errors.New("duplicate refresh token")

	// ErrTokenAlreadyRevoked is returned by a rotation that lost to a concurrent one.
	ErrTokenAlreadyRevoked = errors.New("refresh token already revoked")

	ErrDuplicateEmail = errors.New("email already exists")
)
