package ports

import (
	"context"

	"e-transfer-auth/internal/model"
)

type UserRepository interface {
	UserDirectory
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error)
}

// UserUpdate carries optional changes; nil fields stay unchanged.
type UserUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Password    *string
	Role        *model.Role
	IsActive    *bool
}

type UserService interface {
	Register(ctx context.Context, user *model.User, password string) (*model.User, *model.TokensPair, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	UpdateUser(ctx context.Context, userID int64, update UserUpdate) (*model.User, error)
	ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error)
	DeleteUser(ctx context.Context, userID int64) error
}
