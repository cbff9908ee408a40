package ports

import (
	"context"

	"e-transfer-auth/internal/model"
)

type AuthenticationService interface {
	Login(ctx context.Context, subject, password string) (*model.TokensPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokensPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutEverywhere(ctx context.Context, userID int64) (int64, error)
}

// CredentialVerifier : checks a submitted password against a stored hash
type CredentialVerifier interface {
	Verify(plaintextPassword, storedHash string) bool
}

// UserDirectory : read access to accounts for the authentication core
type UserDirectory interface {
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindBySubject(ctx context.Context, subject string) (*model.User, error)
}

// SessionIssuer : mints a token pair for an already authenticated user and closes
// all of a user's refresh tokens when their credentials or account change
type SessionIssuer interface {
	IssueTokens(ctx context.Context, user *model.User) (*model.TokensPair, error)
	LogoutEverywhere(ctx context.Context, userID int64) (int64, error)
}
