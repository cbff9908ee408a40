package service_test

import (
	"context"
	"errors"
	"testing"

	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/security"
	"e-transfer-auth/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func asIdentity(role model.Role, userID int64) context.Context {
	return security.ContextWithIdentity(context.Background(), model.Identity{
		Subject: "caller@example.com",
		Role:    role,
		UserID:  userID,
	})
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name        string
		ctx         context.Context
		requested   model.Role
		wantRole    model.Role
		setupMocks  func(u *MockUserRepository, s *MockSessionIssuer)
		expectError error
	}{
		{
			name:      "anonymous caller always registers a client",
			ctx:       context.Background(),
			requested: model.RoleAdmin,
			wantRole:  model.RoleClient,
		},
		{
			name:      "agent cannot grant roles",
			ctx:       asIdentity(model.RoleAgent, 2),
			requested: model.RoleAgent,
			wantRole:  model.RoleClient,
		},
		{
			name:      "admin assigns the requested role",
			ctx:       asIdentity(model.RoleAdmin, 1),
			requested: model.RoleAgent,
			wantRole:  model.RoleAgent,
		},
		{
			name:        "admin with unknown role",
			ctx:         asIdentity(model.RoleAdmin, 1),
			requested:   model.Role("ROOT"),
			setupMocks:  func(u *MockUserRepository, s *MockSessionIssuer) {},
			expectError: service.ErrInvalidRole,
		},
		{
			name:      "email taken",
			ctx:       context.Background(),
			requested: "",
			setupMocks: func(u *MockUserRepository, s *MockSessionIssuer) {
				u.On("ExistsByEmail", mock.Anything, "new@example.com").Return(true, nil)
			},
			expectError: service.ErrEmailTaken,
		},
		{
			name:      "email taken by a concurrent registration",
			ctx:       context.Background(),
			requested: "",
			setupMocks: func(u *MockUserRepository, s *MockSessionIssuer) {
				u.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
				u.On("CreateUser", mock.Anything, mock.Anything).Return(nil, model.ErrDuplicateEmail)
			},
			expectError: service.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			sessions := &MockSessionIssuer{}

			if tt.setupMocks != nil {
				tt.setupMocks(users, sessions)
			} else {
				// 1. successful path: the stored user carries the resolved role and a bcrypt hash
				users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
				users.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Role == tt.wantRole && u.IsActive && security.CheckPassword("P@ssw0rd!", u.PasswordHash)
				})).Return(&model.User{ID: 10, Email: "new@example.com", Role: tt.wantRole, IsActive: true}, nil)
				sessions.On("IssueTokens", mock.Anything, mock.Anything).
					Return(&model.TokensPair{AccessToken: "access", RefreshToken: "refresh"}, nil)
			}

			svc := service.NewUserService(users, sessions)
			created, tokens, err := svc.Register(tt.ctx, &model.User{
				Email:     "New@Example.com",
				FirstName: "Ada",
				LastName:  "Lovelace",
				Role:      tt.requested,
			}, "P@ssw0rd!")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, created)
				assert.Nil(t, tokens)
				sessions.AssertNotCalled(t, "IssueTokens", mock.Anything, mock.Anything)
				return
			}

			// 2. tokens are issued for the created user
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, created.Role)
			assert.Equal(t, "access", tokens.AccessToken)
			users.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestUserService_GetUser(t *testing.T) {
	stored := &model.User{ID: 3, Email: "client@example.com", Role: model.RoleClient, IsActive: true}

	tests := []struct {
		name        string
		ctx         context.Context
		userID      int64
		expectError error
	}{
		{name: "anonymous", ctx: context.Background(), userID: 3, expectError: service.ErrUnauthorized},
		{name: "someone else", ctx: asIdentity(model.RoleAgent, 4), userID: 3, expectError: service.ErrForbidden},
		{name: "owner", ctx: asIdentity(model.RoleClient, 3), userID: 3},
		{name: "admin", ctx: asIdentity(model.RoleAdmin, 1), userID: 3},
		{name: "missing user", ctx: asIdentity(model.RoleAdmin, 1), userID: 99, expectError: service.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			users.On("FindByID", mock.Anything, int64(3)).Return(stored, nil)
			users.On("FindByID", mock.Anything, int64(99)).Return(nil, model.ErrNotFound)

			user, err := service.NewUserService(users, &MockSessionIssuer{}).GetUser(tt.ctx, tt.userID)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, stored.ID, user.ID)
		})
	}
}

func TestUserService_UpdateUser(t *testing.T) {
	name := "Grace"
	role := model.RoleAgent
	disabled := false
	badRole := model.Role("ROOT")

	tests := []struct {
		name        string
		ctx         context.Context
		update      ports.UserUpdate
		expectError error
		check       func(t *testing.T, u *model.User)
	}{
		{
			name:        "owner cannot change own role",
			ctx:         asIdentity(model.RoleClient, 3),
			update:      ports.UserUpdate{Role: &role},
			expectError: service.ErrForbidden,
		},
		{
			name:        "owner cannot deactivate",
			ctx:         asIdentity(model.RoleClient, 3),
			update:      ports.UserUpdate{IsActive: &disabled},
			expectError: service.ErrForbidden,
		},
		{
			name:        "other user",
			ctx:         asIdentity(model.RoleAgent, 4),
			update:      ports.UserUpdate{FirstName: &name},
			expectError: service.ErrForbidden,
		},
		{
			name:        "unknown role",
			ctx:         asIdentity(model.RoleAdmin, 1),
			update:      ports.UserUpdate{Role: &badRole},
			expectError: service.ErrInvalidRole,
		},
		{
			name:   "owner edits name",
			ctx:    asIdentity(model.RoleClient, 3),
			update: ports.UserUpdate{FirstName: &name},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, "Grace", u.FirstName)
				assert.Equal(t, model.RoleClient, u.Role)
			},
		},
		{
			name:   "admin changes role and disables",
			ctx:    asIdentity(model.RoleAdmin, 1),
			update: ports.UserUpdate{Role: &role, IsActive: &disabled},
			check: func(t *testing.T, u *model.User) {
				assert.Equal(t, model.RoleAgent, u.Role)
				assert.False(t, u.IsActive)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			users.On("FindByID", mock.Anything, int64(3)).
				Return(&model.User{ID: 3, Email: "client@example.com", FirstName: "Ada", Role: model.RoleClient, IsActive: true}, nil)
			users.On("UpdateUser", mock.Anything, mock.Anything).Return(nil)

			user, err := service.NewUserService(users, &MockSessionIssuer{}).UpdateUser(tt.ctx, 3, tt.update)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			tt.check(t, user)
		})
	}
}

func TestUserService_ListUsers(t *testing.T) {
	users := &MockUserRepository{}
	users.On("ListUsers", mock.Anything, "", 20).Return([]*model.User{{ID: 1}, {ID: 2}}, "2", nil)
	users.On("ListUsers", mock.Anything, "2", 100).Return([]*model.User{}, "", nil)
	svc := service.NewUserService(users, &MockSessionIssuer{})

	_, _, err := svc.ListUsers(asIdentity(model.RoleAgent, 2), "", 0)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, _, err = svc.ListUsers(context.Background(), "", 0)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, _, err = svc.ListUsers(asIdentity(model.RoleAdmin, 1), "abc", 10)
	assert.ErrorIs(t, err, service.ErrInvalidCursor)

	// 1. default page size
	page, next, err := svc.ListUsers(asIdentity(model.RoleAdmin, 1), "", 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, "2", next)

	// 2. oversized pages are capped
	_, next, err = svc.ListUsers(asIdentity(model.RoleAdmin, 1), "2", 1000)
	require.NoError(t, err)
	assert.Empty(t, next)

	users.AssertExpectations(t)
}

func TestUserService_RegisterRemovesAccountWithoutSession(t *testing.T) {
	users := &MockUserRepository{}
	sessions := &MockSessionIssuer{}

	// 1. the account is created, then token issuance fails
	users.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
	users.On("CreateUser", mock.Anything, mock.Anything).
		Return(&model.User{ID: 10, Email: "new@example.com", Role: model.RoleClient, IsActive: true}, nil)
	sessions.On("IssueTokens", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	// 2. the half-registered account is removed so a retry does not hit ErrEmailTaken
	users.On("DeleteUser", mock.Anything, int64(10)).Return(nil).Once()

	created, tokens, err := service.NewUserService(users, sessions).Register(context.Background(), &model.User{
		Email:     "new@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}, "P@ssw0rd!")

	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrEmailTaken)
	assert.Nil(t, created)
	assert.Nil(t, tokens)
	users.AssertExpectations(t)
}

func TestUserService_UpdatePassword(t *testing.T) {
	newPassword := "n3w-P@ssword"

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "owner", ctx: asIdentity(model.RoleClient, 3)},
		{name: "admin", ctx: asIdentity(model.RoleAdmin, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			sessions := &MockSessionIssuer{}

			users.On("FindByID", mock.Anything, int64(3)).
				Return(&model.User{ID: 3, Email: "client@example.com", PasswordHash: "old-hash", Role: model.RoleClient, IsActive: true}, nil)

			// 1. the stored hash is a bcrypt hash of the new password
			users.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
				return security.CheckPassword(newPassword, u.PasswordHash)
			})).Return(nil).Once()

			// 2. every refresh token of the account is revoked
			sessions.On("LogoutEverywhere", mock.Anything, int64(3)).Return(int64(2), nil).Once()

			user, err := service.NewUserService(users, sessions).UpdateUser(tt.ctx, 3, ports.UserUpdate{Password: &newPassword})
			require.NoError(t, err)
			assert.NotEqual(t, "old-hash", user.PasswordHash)

			users.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdatePasswordRevokeFailure(t *testing.T) {
	newPassword := "n3w-P@ssword"
	users := &MockUserRepository{}
	sessions := &MockSessionIssuer{}

	users.On("FindByID", mock.Anything, int64(3)).
		Return(&model.User{ID: 3, Email: "client@example.com", Role: model.RoleClient, IsActive: true}, nil)
	users.On("UpdateUser", mock.Anything, mock.Anything).Return(nil)
	sessions.On("LogoutEverywhere", mock.Anything, int64(3)).Return(int64(0), errors.New("store down"))

	_, err := service.NewUserService(users, sessions).UpdateUser(asIdentity(model.RoleClient, 3), 3, ports.UserUpdate{Password: &newPassword})
	assert.Error(t, err)
}

func TestUserService_UpdateWithoutPasswordKeepsSessions(t *testing.T) {
	name := "Grace"
	users := &MockUserRepository{}
	sessions := &MockSessionIssuer{}

	users.On("FindByID", mock.Anything, int64(3)).
		Return(&model.User{ID: 3, Email: "client@example.com", PasswordHash: "old-hash", Role: model.RoleClient, IsActive: true}, nil)
	users.On("UpdateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.PasswordHash == "old-hash"
	})).Return(nil)

	_, err := service.NewUserService(users, sessions).UpdateUser(asIdentity(model.RoleClient, 3), 3, ports.UserUpdate{FirstName: &name})
	require.NoError(t, err)
	sessions.AssertNotCalled(t, "LogoutEverywhere", mock.Anything, mock.Anything)
}

func TestUserService_DeleteUser(t *testing.T) {
	tests := []struct {
		name        string
		ctx         context.Context
		userID      int64
		setupMocks  func(u *MockUserRepository, s *MockSessionIssuer)
		expectError error
	}{
		{name: "anonymous", ctx: context.Background(), userID: 3, expectError: service.ErrUnauthorized},
		{name: "agent", ctx: asIdentity(model.RoleAgent, 2), userID: 3, expectError: service.ErrForbidden},
		{name: "owner is not enough", ctx: asIdentity(model.RoleClient, 3), userID: 3, expectError: service.ErrForbidden},
		{
			name:   "missing user",
			ctx:    asIdentity(model.RoleAdmin, 1),
			userID: 99,
			setupMocks: func(u *MockUserRepository, s *MockSessionIssuer) {
				u.On("DeleteUser", mock.Anything, int64(99)).Return(model.ErrNotFound)
			},
			expectError: service.ErrUserNotFound,
		},
		{
			name:   "admin deletes and revokes sessions",
			ctx:    asIdentity(model.RoleAdmin, 1),
			userID: 3,
			setupMocks: func(u *MockUserRepository, s *MockSessionIssuer) {
				u.On("DeleteUser", mock.Anything, int64(3)).Return(nil).Once()
				s.On("LogoutEverywhere", mock.Anything, int64(3)).Return(int64(1), nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &MockUserRepository{}
			sessions := &MockSessionIssuer{}
			if tt.setupMocks != nil {
				tt.setupMocks(users, sessions)
			}

			err := service.NewUserService(users, sessions).DeleteUser(tt.ctx, tt.userID)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				sessions.AssertNotCalled(t, "LogoutEverywhere", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			users.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}
