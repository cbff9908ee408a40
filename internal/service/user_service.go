package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/security"
	"e-transfer-auth/internal/util"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type UserService struct {
	userRepository ports.UserRepository
	sessions       ports.SessionIssuer
	hashPassword   func(string) (string, error)
}

func NewUserService(userRepository ports.UserRepository, sessions ports.SessionIssuer) *UserService {
	return &UserService{
		userRepository: userRepository,
		sessions:       sessions,
		hashPassword:   security.HashPassword,
	}
}

// Register creates an account and signs it in. Anonymous and non-admin callers always
// register a CLIENT; an ADMIN may assign any role.
func (s *UserService) Register(ctx context.Context, user *model.User, password string) (*model.User, *model.TokensPair, error) {
	identity, authenticated := security.IdentityFromContext(ctx)
	isAdmin := authenticated && identity.HasRole(model.RoleAdmin)

	candidate := *user
	candidate.Email = model.NormalizeEmail(user.Email)
	candidate.IsActive = true

	switch {
	case !isAdmin || candidate.Role == "":
		candidate.Role = model.RoleClient
	case !candidate.Role.Valid():
		return nil, nil, ErrInvalidRole
	}

	exists, err := s.userRepository.ExistsByEmail(ctx, candidate.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("[UserService] failed to check email: %w", err)
	}
	if exists {
		return nil, nil, ErrEmailTaken
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("[UserService] failed to hash password: %w", err)
	}
	candidate.PasswordHash = hash

	created, err := s.userRepository.CreateUser(ctx, &candidate)
	if errors.Is(err, model.ErrDuplicateEmail) {
		return nil, nil, ErrEmailTaken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("[UserService] failed to create user: %w", err)
	}

	tokens, err := s.sessions.IssueTokens(ctx, created)
	if err != nil {
		// without a session the caller would retry into ErrEmailTaken, so undo the account
		if delErr := s.userRepository.DeleteUser(ctx, created.ID); delErr != nil {
			util.Logger.WithError(delErr).WithField("user_id", created.ID).
				Error("account created without a session and could not be removed")
		}
		return nil, nil, fmt.Errorf("[UserService] failed to issue tokens: %w", err)
	}

	util.Logger.WithFields(logrus.Fields{
		"user_id": created.ID,
		"role":    created.Role,
	}).Info("user registered")

	return created, tokens, nil
}

// GetUser returns the account to its owner or to an admin.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	identity, ok := security.IdentityFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if identity.UserID != userID && !identity.HasRole(model.RoleAdmin) {
		return nil, ErrForbidden
	}

	return s.findUser(ctx, userID)
}

// UpdateUser applies the non-nil fields. Owners may change their names, phone number and
// password; role and active flag are reserved for admins. A password change revokes every
// refresh token of the account.
func (s *UserService) UpdateUser(ctx context.Context, userID int64, update ports.UserUpdate) (*model.User, error) {
	identity, ok := security.IdentityFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	isAdmin := identity.HasRole(model.RoleAdmin)
	if identity.UserID != userID && !isAdmin {
		return nil, ErrForbidden
	}
	if (update.Role != nil || update.IsActive != nil) && !isAdmin {
		return nil, ErrForbidden
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, ErrInvalidRole
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.PhoneNumber != nil {
		user.PhoneNumber = *update.PhoneNumber
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Password != nil {
		hash, err := s.hashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("[UserService] failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	err = s.userRepository.UpdateUser(ctx, user)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[UserService] failed to update user: %w", err)
	}

	if update.Password != nil {
		if _, err := s.sessions.LogoutEverywhere(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("[UserService] failed to revoke sessions after password change: %w", err)
		}
		util.Logger.WithField("user_id", user.ID).Info("password changed")
	}

	return user, nil
}

// DeleteUser removes an account and closes its refresh tokens. Admin only. Access tokens
// already issued stay valid until they expire.
func (s *UserService) DeleteUser(ctx context.Context, userID int64) error {
	identity, ok := security.IdentityFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !identity.HasRole(model.RoleAdmin) {
		return ErrForbidden
	}

	err := s.userRepository.DeleteUser(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("[UserService] failed to delete user: %w", err)
	}

	// the postgres store cascades, the redis store does not
	if _, err := s.sessions.LogoutEverywhere(ctx, userID); err != nil {
		return fmt.Errorf("[UserService] failed to revoke sessions of deleted user: %w", err)
	}

	util.Logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"deleted_by": identity.UserID,
	}).Info("user deleted")
	return nil
}

// ListUsers pages through all accounts. Admin only.
func (s *UserService) ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error) {
	identity, ok := security.IdentityFromContext(ctx)
	if !ok {
		return nil, "", ErrUnauthorized
	}
	if !identity.HasRole(model.RoleAdmin) {
		return nil, "", ErrForbidden
	}

	if cursor != "" {
		if _, err := strconv.ParseInt(cursor, 10, 64); err != nil {
			return nil, "", ErrInvalidCursor
		}
	}
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}

	users, next, err := s.userRepository.ListUsers(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("[UserService] failed to list users: %w", err)
	}
	return users, next, nil
}

func (s *UserService) findUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepository.FindByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[UserService] failed to load user: %w", err)
	}
	return user, nil
}
