package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"e-transfer-auth/config"
	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/util"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, role, is_active, created_at, updated_at`

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : saves a new user and fills the generated id and timestamps
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, phone_number, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	created := *user
	created.Email = model.NormalizeEmail(user.Email)

	err := r.DB.QueryRowxContext(ctx, query,
		created.Email,
		created.PasswordHash,
		created.FirstName,
		created.LastName,
		created.PhoneNumber,
		created.Role,
		created.IsActive,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)

	if isUniqueViolation(err) {
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] failed to insert user", err)
	}

	return &created, nil
}

// FindByID : looks a user up by id
func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, userID)
}

// FindBySubject : looks a user up by email, the token subject
func (r *UserRepository) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, model.NormalizeEmail(subject))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] failed to query user", err)
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	err := sqlx.GetContext(ctx, r.DB, &exists, query, model.NormalizeEmail(email))
	if err != nil {
		return false, util.LogError("[UserRepo] failed to check email", err)
	}
	return exists, nil
}

// UpdateUser : overwrites profile, password hash, role and active flag
func (r *UserRepository) UpdateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, phone_number = $4, role = $5, is_active = $6,
			password_hash = $7, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Role,
		user.IsActive,
		user.PasswordHash,
	)
	if err != nil {
		return util.LogError("[UserRepo] failed to update user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[UserRepo] failed to check updated rows", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteUser : removes the account; its refresh_tokens rows go with it (ON DELETE CASCADE)
func (r *UserRepository) DeleteUser(ctx context.Context, userID int64) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return util.LogError("[UserRepo] failed to delete user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[UserRepo] failed to check deleted rows", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListUsers : keyset pagination by id, the cursor is the last id of the previous page
func (r *UserRepository) ListUsers(ctx context.Context, cursor string, limit int) ([]*model.User, string, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	var afterID int64
	if cursor != "" {
		var err error
		afterID, err = strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor format: %w", err)
		}
	}

	var users []*model.User
	err := sqlx.SelectContext(ctx, r.DB, &users, query, afterID, limit+1) // +1 to detect a next page
	if err != nil {
		return nil, "", util.LogError("[UserRepo] failed to list users", err)
	}

	var nextCursor string
	if len(users) > limit {
		users = users[:limit]
		nextCursor = strconv.FormatInt(users[len(users)-1].ID, 10)
	}

	return users, nextCursor, nil
}
