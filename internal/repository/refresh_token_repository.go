package repository

import (
	"context"
	"database/sql"
	"errors"

	"e-transfer-auth/config"
	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type RefreshTokenRepository struct {
	*config.Database
}

func NewRefreshTokenRepository(database *config.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{database}
}

// Save inserts a new refresh-token record.
// Returns model.ErrDuplicateToken if the token value is already stored.
func (r *RefreshTokenRepository) Save(ctx context.Context, refreshToken *model.RefreshToken) error {
	return insertRefreshToken(ctx, r.DB, refreshToken)
}

func insertRefreshToken(ctx context.Context, exec sqlx.ExtContext, refreshToken *model.RefreshToken) error {
	if refreshToken.ID == "" {
		refreshToken.ID = uuid.NewString()
	}
	if refreshToken.TokenHash == "" {
		refreshToken.TokenHash = model.HashToken(refreshToken.Token)
	}

	query := `
		INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := exec.QueryRowxContext(ctx, query,
		refreshToken.ID,
		refreshToken.TokenHash,
		refreshToken.UserID,
		refreshToken.ExpiresAt,
		refreshToken.Revoked,
	).Scan(&refreshToken.CreatedAt)

	if isUniqueViolation(err) {
		return util.LogError("[RefreshTokenRepo] refresh token already stored", model.ErrDuplicateToken)
	}
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to insert refresh token", err)
	}

	return nil
}

// FindByToken looks a record up by exact match on the token value.
// Returns model.ErrNotFound if there is none.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	query := `
		SELECT id, token_hash, user_id, expires_at, revoked, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var refreshToken model.RefreshToken
	err := sqlx.GetContext(ctx, r.DB, &refreshToken, query, model.HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, util.LogError("[RefreshTokenRepo] failed to query refresh token", err)
	}

	refreshToken.Token = token
	return &refreshToken, nil
}

// Revoke marks the record revoked. Revoking twice is not an error.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, refreshToken *model.RefreshToken) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, NOW())
		WHERE token_hash = $1
	`

	result, err := r.DB.ExecContext(ctx, query, tokenHash(refreshToken))
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to revoke refresh token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to check revoked rows", err)
	}
	if rowsAffected == 0 {
		return model.ErrNotFound
	}

	refreshToken.Revoked = true
	return nil
}

// Rotate revokes current and stores replacement in one transaction. The conditional
// update takes the row lock, so of two concurrent rotations of the same token only the
// first finds it unrevoked; the other gets model.ErrTokenAlreadyRevoked.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, current, replacement *model.RefreshToken) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
	`
	result, err := tx.ExecContext(ctx, query, tokenHash(current))
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to revoke rotated token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return util.LogError("[RefreshTokenRepo] failed to check revoked rows", err)
	}
	if rowsAffected == 0 {
		return model.ErrTokenAlreadyRevoked
	}

	if err := insertRefreshToken(ctx, tx, replacement); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return util.LogError("[RefreshTokenRepo] failed to commit rotation", err)
	}

	current.Revoked = true
	return nil
}

// RevokeAllForUser revokes every active refresh token of the user and returns how many.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = NOW()
		WHERE user_id = $1 AND revoked = FALSE
	`

	result, err := r.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, util.LogError("[RefreshTokenRepo] failed to revoke user tokens", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, util.LogError("[RefreshTokenRepo] failed to check revoked rows", err)
	}

	return rowsAffected, nil
}

func tokenHash(refreshToken *model.RefreshToken) string {
	if refreshToken.TokenHash != "" {
		return refreshToken.TokenHash
	}
	return model.HashToken(refreshToken.Token)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
