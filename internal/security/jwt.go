package security

import (
	"errors"
	"fmt"
	"time"

	"e-transfer-auth/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("signing secret must not be empty")

// TokenType separates access tokens from refresh tokens signed with the same secret.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Claims is the identity data carried by a token.
type Claims struct {
	Subject   string
	Role      model.Role
	UserID    int64
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity returns the request identity described by the claims.
func (c *Claims) Identity() model.Identity {
	return model.Identity{
		Subject: c.Subject,
		Role:    c.Role,
		UserID:  c.UserID,
	}
}

// tokenClaims is the wire form. Fields not listed here are ignored on decode.
type tokenClaims struct {
	Role   model.Role `json:"role,omitempty"`
	UserID int64      `json:"uid"`
	Type   TokenType  `json:"typ"`
	jwt.RegisteredClaims
}

type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		c.issuer = issuer
	}
}

// TokenCodec signs and verifies tokens with a single HS256 secret. It holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	codec := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}

	return codec, nil
}

// Encode signs claims with issued-at = now and expiry = now + ttl.
func (c *TokenCodec) Encode(claims Claims, ttl time.Duration) (string, error) {
	token, _, err := c.encode(claims, ttl)
	return token, err
}

func (c *TokenCodec) encode(claims Claims, ttl time.Duration) (string, *Claims, error) {
	// NumericDate has second precision, anything shorter collapses exp onto iat
	if ttl < time.Second {
		return "", nil, fmt.Errorf("token ttl must be at least one second, got %s", ttl)
	}

	now := c.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	claims.IssuedAt = issuedAt.Time
	claims.ExpiresAt = expiresAt.Time
	// never sign what Decode would reject
	if err := claims.validate(); err != nil {
		return "", nil, fmt.Errorf("refusing to sign token: %w", err)
	}

	wire := tokenClaims{
		Role:   claims.Role,
		UserID: claims.UserID,
		Type:   claims.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        claims.ID,
			Issuer:    c.issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}

	return signed, &claims, nil
}

// Decode verifies the signature first and only then the time-based claims, so a
// forged token is reported as InvalidSignature even when it is also expired.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	wire := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, wire, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, options...)
	if err != nil {
		return nil, classify(err)
	}

	claims := &Claims{
		Subject: wire.Subject,
		Role:    wire.Role,
		UserID:  wire.UserID,
		Type:    wire.Type,
		ID:      wire.ID,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	claims.ExpiresAt = wire.ExpiresAt.Time

	if err := claims.validate(); err != nil {
		return nil, newTokenError(KindMalformed, err)
	}

	return claims, nil
}

func (c *Claims) validate() error {
	if c.Subject == "" {
		return errors.New("missing subject")
	}
	if c.UserID <= 0 {
		return errors.New("missing user id")
	}
	if c.IssuedAt.IsZero() {
		return errors.New("missing issued-at")
	}
	if !c.ExpiresAt.After(c.IssuedAt) {
		return errors.New("expiry is not after issued-at")
	}
	switch c.Type {
	case TypeAccess:
		if !c.Role.Valid() {
			return fmt.Errorf("unknown role %q", c.Role)
		}
	case TypeRefresh:
	default:
		return fmt.Errorf("unknown token type %q", c.Type)
	}
	return nil
}

func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newTokenError(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newTokenError(KindInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newTokenError(KindExpired, err)
	default:
		return newTokenError(KindMalformed, err)
	}
}
