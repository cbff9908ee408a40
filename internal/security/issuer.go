package security

import (
	"time"

	"e-transfer-auth/internal/model"

	"github.com/google/uuid"
)

// TokenIssuer mints access and refresh tokens on top of a TokenCodec.
type TokenIssuer struct {
	codec      *TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(codec *TokenCodec, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *TokenIssuer) IssueAccessToken(subject string, role model.Role, userID int64) (string, error) {
	return i.codec.Encode(Claims{
		Subject: subject,
		Role:    role,
		UserID:  userID,
		Type:    TypeAccess,
	}, i.accessTTL)
}

// IssueRefreshToken carries no role: a refresh token only authorizes minting a new
// access token. The jti keeps two tokens issued for one user in the same second distinct.
func (i *TokenIssuer) IssueRefreshToken(subject string, userID int64) (string, time.Time, error) {
	token, claims, err := i.codec.encode(Claims{
		Subject: subject,
		UserID:  userID,
		Type:    TypeRefresh,
		ID:      uuid.NewString(),
	}, i.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt, nil
}
