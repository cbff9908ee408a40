package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is the persisted refresh-token record. The raw value is handed to the
// client once and only its SHA-256 digest is stored.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	Token     string     `db:"-" json:"-"`
	TokenHash string     `db:"token_hash" json:"token_hash"`
	UserID    int64      `db:"user_id" json:"user_id"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// Usable : not revoked and persisted expiry still ahead of now
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// HashToken returns the lookup key for a raw refresh token value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokensPair holds an access and refresh token pair
// swagger:model
type TokensPair struct {
	// Access token (JWT)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// Refresh token, used only to obtain a new access token
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}

// Identity is the verified caller identity attached to a request.
type Identity struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
	UserID  int64  `json:"user_id"`
}

func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
