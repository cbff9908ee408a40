package service

import "errors"

var (
	ErrInvalidCredentials           = errors.New("invalid email or password")
	ErrAccountDisabled              = errors.New("user account is disabled")
	ErrInvalidRefreshToken          = errors.New("invalid refresh token")
	ErrRefreshTokenRevokedOrExpired = errors.New("refresh token is revoked or expired")

	ErrEmailTaken    = errors.New("email already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrForbidden     = errors.New("access denied")
	ErrUnauthorized  = errors.New("authentication required")
	ErrInvalidRole   = errors.New("invalid role")
	ErrInvalidCursor = errors.New("invalid cursor")
)
