package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/security"
	"e-transfer-auth/internal/util"

	"github.com/sirupsen/logrus"
)

// unknownAccountHash is compared against when the subject has no account.
var unknownAccountHash = sync.OnceValue(func() string {
	hash, err := security.HashPassword("unknown-account")
	if err != nil {
		panic(fmt.Sprintf("hash placeholder password: %v", err))
	}
	return hash
})

// RotationPolicy decides what a successful refresh does with the presented refresh
// token. It is fixed per deployment.
type RotationPolicy int

const (
	// RotationReuse returns the presented refresh token unchanged.
	RotationReuse RotationPolicy = iota
	// RotationRotate issues a new refresh token and revokes the presented one atomically.
	RotationRotate
)

func (p RotationPolicy) String() string {
	if p == RotationRotate {
		return "rotate"
	}
	return "reuse"
}

type AuthenticationService struct {
	store    ports.RefreshTokenStore
	users    ports.UserDirectory
	verifier ports.CredentialVerifier
	issuer   ports.TokenIssuer
	codec    ports.TokenCodec
	policy   RotationPolicy
	now      func() time.Time
}

func NewAuthenticationService(
	store ports.RefreshTokenStore,
	users ports.UserDirectory,
	verifier ports.CredentialVerifier,
	issuer ports.TokenIssuer,
	codec ports.TokenCodec,
	policy RotationPolicy,
) *AuthenticationService {
	return &AuthenticationService{
		store:    store,
		users:    users,
		verifier: verifier,
		issuer:   issuer,
		codec:    codec,
		policy:   policy,
		now:      time.Now,
	}
}

func (s *AuthenticationService) Policy() RotationPolicy {
	return s.policy
}

// Login checks the password and, for an active account, issues an access and a refresh
// token and persists the refresh record. A disabled account gets nothing issued.
func (s *AuthenticationService) Login(ctx context.Context, subject, password string) (*model.TokensPair, error) {
	user, err := s.users.FindBySubject(ctx, model.NormalizeEmail(subject))
	if errors.Is(err, model.ErrNotFound) {
		// same bcrypt cost as a real account, so response time does not reveal which emails exist
		s.verifier.Verify(password, unknownAccountHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to load user: %w", err)
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	tokens, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	util.Logger.WithField("user_id", user.ID).Info("user logged in")
	return tokens, nil
}

// IssueTokens mints a token pair for an already authenticated user and persists the
// refresh record.
func (s *AuthenticationService) IssueTokens(ctx context.Context, user *model.User) (*model.TokensPair, error) {
	accessToken, err := s.issuer.IssueAccessToken(user.Email, user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to issue access token: %w", err)
	}

	refreshToken, err := s.newRefreshRecord(user)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("[AuthService] failed to save refresh token: %w", err)
	}

	return &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
	}, nil
}

// Refresh exchanges a refresh token for a new access token carrying the owner's
// current role. Under RotationRotate the presented token is revoked and a new one is
// returned; under RotationReuse the presented token is returned unchanged.
func (s *AuthenticationService) Refresh(ctx context.Context, presented string) (*model.TokensPair, error) {
	claims, err := s.codec.Decode(presented)
	if err != nil {
		s.logRejected(err)
		return nil, ErrInvalidRefreshToken
	}
	if claims.Type != security.TypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := s.store.FindByToken(ctx, presented)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to look up refresh token: %w", err)
	}
	if stored.UserID != claims.UserID {
		util.Logger.WithField("token_id", stored.ID).Warn("refresh token user mismatch")
		return nil, ErrInvalidRefreshToken
	}

	// the stored record is authoritative over the embedded expiry
	if !stored.Usable(s.now()) {
		return nil, ErrRefreshTokenRevokedOrExpired
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	accessToken, err := s.issuer.IssueAccessToken(user.Email, user.Role, user.ID)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to issue access token: %w", err)
	}

	if s.policy == RotationReuse {
		return &model.TokensPair{AccessToken: accessToken, RefreshToken: presented}, nil
	}

	replacement, err := s.newRefreshRecord(user)
	if err != nil {
		return nil, err
	}

	err = s.store.Rotate(ctx, stored, replacement)
	switch {
	case errors.Is(err, model.ErrTokenAlreadyRevoked):
		util.Logger.WithField("token_id", stored.ID).Warn("refresh token reused during rotation")
		return nil, ErrRefreshTokenRevokedOrExpired
	case errors.Is(err, model.ErrNotFound):
		return nil, ErrInvalidRefreshToken
	case err != nil:
		return nil, fmt.Errorf("[AuthService] failed to rotate refresh token: %w", err)
	}

	return &model.TokensPair{AccessToken: accessToken, RefreshToken: replacement.Token}, nil
}

// Logout revokes the presented refresh token. Logging out twice is not an error.
func (s *AuthenticationService) Logout(ctx context.Context, presented string) error {
	stored, err := s.store.FindByToken(ctx, presented)
	if errors.Is(err, model.ErrNotFound) {
		return ErrInvalidRefreshToken
	}
	if err != nil {
		return fmt.Errorf("[AuthService] failed to look up refresh token: %w", err)
	}

	if err := s.store.Revoke(ctx, stored); err != nil {
		return fmt.Errorf("[AuthService] failed to revoke refresh token: %w", err)
	}
	return nil
}

// LogoutEverywhere revokes all refresh tokens of the user. Access tokens already issued
// stay valid until they expire.
func (s *AuthenticationService) LogoutEverywhere(ctx context.Context, userID int64) (int64, error) {
	revoked, err := s.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("[AuthService] failed to revoke refresh tokens: %w", err)
	}

	util.Logger.WithFields(logrus.Fields{"user_id": userID, "revoked": revoked}).Info("revoked all refresh tokens")
	return revoked, nil
}

func (s *AuthenticationService) newRefreshRecord(user *model.User) (*model.RefreshToken, error) {
	token, expiresAt, err := s.issuer.IssueRefreshToken(user.Email, user.ID)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] failed to issue refresh token: %w", err)
	}

	return &model.RefreshToken{
		Token:     token,
		TokenHash: model.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthenticationService) logRejected(err error) {
	kind := security.FailureKindOf(err)
	entry := util.Logger.WithField("reason", kind.String())
	if kind.Suspicious() {
		entry.Warn("refresh token with invalid signature")
		return
	}
	entry.Debug("refresh token rejected")
}
