package ports

import (
	"context"
	"time"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/security"
)

// TokenCodec : signs and verifies tokens, see security.TokenCodec
type TokenCodec interface {
	Encode(claims security.Claims, ttl time.Duration) (string, error)
	Decode(token string) (*security.Claims, error)
}

// TokenIssuer : mints access and refresh tokens, see security.TokenIssuer
type TokenIssuer interface {
	IssueAccessToken(subject string, role model.Role, userID int64) (string, error)
	IssueRefreshToken(subject string, userID int64) (string, time.Time, error)
}

// RefreshTokenStore persists refresh-token records. Operations on one token value
// are linearizable; Rotate lets at most one of several concurrent callers win.
type RefreshTokenStore interface {
	Save(ctx context.Context, token *model.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, token *model.RefreshToken) error
	Rotate(ctx context.Context, current, replacement *model.RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
}
