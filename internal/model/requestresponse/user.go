package requestresponse

import (
	"time"

	"e-transfer-auth/internal/model"
)

// RegisterRequest : registration body. Role is honoured only for admin callers.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email" example:"client@example.com"`
	Password    string `json:"password" validate:"required,min=6" example:"P@ssw0rd!"`
	FirstName   string `json:"first_name" validate:"required,max=50" example:"Ada"`
	LastName    string `json:"last_name" validate:"required,max=50" example:"Lovelace"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone" example:"+15551234567"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN AGENT CLIENT" example:"CLIENT"`
}

// RegisterResponse : created user with a fresh token pair
type RegisterResponse struct {
	User   UserResponse   `json:"user"`
	Tokens TokensResponse `json:"tokens"`
}

// UpdateUserRequest : omitted fields stay unchanged
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,phone"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=ADMIN AGENT CLIENT"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UserResponse : public view of an account
type UserResponse struct {
	ID          int64     `json:"id" example:"42"`
	Email       string    `json:"email" example:"client@example.com"`
	FirstName   string    `json:"first_name" example:"Ada"`
	LastName    string    `json:"last_name" example:"Lovelace"`
	PhoneNumber string    `json:"phone_number,omitempty" example:"+15551234567"`
	Role        string    `json:"role" example:"CLIENT"`
	IsActive    bool      `json:"is_active" example:"true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListUsersResponse : one page of accounts
type ListUsersResponse struct {
	Users      []UserResponse `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty" example:"42"`
}

func NewUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role.String(),
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func NewTokensResponse(tokens *model.TokensPair) TokensResponse {
	return TokensResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
	}
}
