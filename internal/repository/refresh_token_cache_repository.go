package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"e-transfer-auth/config"
	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/util"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// expiredRetention keeps a record readable for a while after it expires, so an expired
// token is reported as expired instead of unknown.
const expiredRetention = 24 * time.Hour

var saveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'user_id', ARGV[2], 'expires_at', ARGV[3], 'revoked', '0', 'created_at', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
redis.call('SADD', KEYS[2], ARGV[6])
if redis.call('PTTL', KEYS[2]) < tonumber(ARGV[5]) then
	redis.call('PEXPIRE', KEYS[2], ARGV[5])
end
return 1
`)

var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'revoked') == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'revoked', '1', 'revoked_at', ARGV[1])
return 1
`)

var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'revoked') == '1' then
	return 0
end
if tonumber(redis.call('HGET', KEYS[1], 'expires_at')) <= tonumber(ARGV[1]) then
	return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
	return -2
end
redis.call('HSET', KEYS[1], 'revoked', '1', 'revoked_at', ARGV[1])
redis.call('HSET', KEYS[2], 'id', ARGV[2], 'user_id', ARGV[3], 'expires_at', ARGV[4], 'revoked', '0', 'created_at', ARGV[1])
redis.call('PEXPIRE', KEYS[2], ARGV[5])
redis.call('SADD', KEYS[3], ARGV[6])
if redis.call('PTTL', KEYS[3]) < tonumber(ARGV[5]) then
	redis.call('PEXPIRE', KEYS[3], ARGV[5])
end
return 1
`)

var revokeAllScript = redis.NewScript(`
local revoked = 0
for _, hash in ipairs(redis.call('SMEMBERS', KEYS[1])) do
	local key = ARGV[1] .. hash
	if redis.call('EXISTS', key) == 0 then
		redis.call('SREM', KEYS[1], hash)
	elseif redis.call('HGET', key, 'revoked') ~= '1' then
		redis.call('HSET', key, 'revoked', '1', 'revoked_at', ARGV[2])
		revoked = revoked + 1
	end
end
return revoked
`)

const refreshTokenKeyPrefix = "refresh_token:"

// RefreshTokenCacheRepository stores refresh-token records in Redis hashes. Every
// mutation is a single Lua script, so operations on one token value are atomic.
type RefreshTokenCacheRepository struct {
	client *config.RedisClient
	now    func() time.Time
}

func NewRefreshTokenCacheRepository(rdb *config.RedisClient) *RefreshTokenCacheRepository {
	return &RefreshTokenCacheRepository{client: rdb, now: time.Now}
}

func (r *RefreshTokenCacheRepository) Save(ctx context.Context, refreshToken *model.RefreshToken) error {
	prepareRecord(refreshToken)
	now := r.now()

	res, err := saveScript.Run(ctx, r.client.Client,
		[]string{r.key(refreshToken.TokenHash), r.userKey(refreshToken.UserID)},
		refreshToken.ID,
		refreshToken.UserID,
		refreshToken.ExpiresAt.UnixMilli(),
		now.UnixMilli(),
		r.ttl(refreshToken.ExpiresAt, now).Milliseconds(),
		refreshToken.TokenHash,
	).Int64()
	if err != nil {
		return util.LogError("[RefreshTokenCache] failed to save refresh token", err)
	}
	if res == 0 {
		return util.LogError("[RefreshTokenCache] refresh token already stored", model.ErrDuplicateToken)
	}

	refreshToken.CreatedAt = time.UnixMilli(now.UnixMilli())
	return nil
}

func (r *RefreshTokenCacheRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	hash := model.HashToken(token)

	fields, err := r.client.Client.HGetAll(ctx, r.key(hash)).Result()
	if err != nil {
		return nil, util.LogError("[RefreshTokenCache] failed to read refresh token", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrNotFound
	}

	refreshToken, err := decodeRecord(fields)
	if err != nil {
		return nil, util.LogError("[RefreshTokenCache] corrupt refresh token record", err)
	}
	refreshToken.Token = token
	refreshToken.TokenHash = hash

	return refreshToken, nil
}

func (r *RefreshTokenCacheRepository) Revoke(ctx context.Context, refreshToken *model.RefreshToken) error {
	res, err := revokeScript.Run(ctx, r.client.Client,
		[]string{r.key(tokenHash(refreshToken))},
		r.now().UnixMilli(),
	).Int64()
	if err != nil {
		return util.LogError("[RefreshTokenCache] failed to revoke refresh token", err)
	}
	if res == -1 {
		return model.ErrNotFound
	}

	refreshToken.Revoked = true
	return nil
}

func (r *RefreshTokenCacheRepository) Rotate(ctx context.Context, current, replacement *model.RefreshToken) error {
	prepareRecord(replacement)
	now := r.now()

	res, err := rotateScript.Run(ctx, r.client.Client,
		[]string{r.key(tokenHash(current)), r.key(replacement.TokenHash), r.userKey(replacement.UserID)},
		now.UnixMilli(),
		replacement.ID,
		replacement.UserID,
		replacement.ExpiresAt.UnixMilli(),
		r.ttl(replacement.ExpiresAt, now).Milliseconds(),
		replacement.TokenHash,
	).Int64()
	if err != nil {
		return util.LogError("[RefreshTokenCache] failed to rotate refresh token", err)
	}

	switch res {
	case -1:
		return model.ErrNotFound
	case 0:
		return model.ErrTokenAlreadyRevoked
	case -2:
		return util.LogError("[RefreshTokenCache] replacement token already stored", model.ErrDuplicateToken)
	}

	current.Revoked = true
	replacement.CreatedAt = time.UnixMilli(now.UnixMilli())
	return nil
}

func (r *RefreshTokenCacheRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	revoked, err := revokeAllScript.Run(ctx, r.client.Client,
		[]string{r.userKey(userID)},
		refreshTokenKeyPrefix,
		r.now().UnixMilli(),
	).Int64()
	if err != nil {
		return 0, util.LogError("[RefreshTokenCache] failed to revoke user tokens", err)
	}
	return revoked, nil
}

func (r *RefreshTokenCacheRepository) ttl(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now) + expiredRetention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (r *RefreshTokenCacheRepository) key(hash string) string {
	return refreshTokenKeyPrefix + hash
}

func (r *RefreshTokenCacheRepository) userKey(userID int64) string {
	return fmt.Sprintf("refresh_tokens:user:%d", userID)
}

func prepareRecord(refreshToken *model.RefreshToken) {
	if refreshToken.ID == "" {
		refreshToken.ID = uuid.NewString()
	}
	if refreshToken.TokenHash == "" {
		refreshToken.TokenHash = model.HashToken(refreshToken.Token)
	}
}

func decodeRecord(fields map[string]string) (*model.RefreshToken, error) {
	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("user_id: %w", err)
	}
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("expires_at: %w", err)
	}
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	refreshToken := &model.RefreshToken{
		ID:        fields["id"],
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		Revoked:   fields["revoked"] == "1",
	}

	if raw, ok := fields["revoked_at"]; ok {
		revokedAt, err := parseMillis(raw)
		if err != nil {
			return nil, fmt.Errorf("revoked_at: %w", err)
		}
		refreshToken.RevokedAt = &revokedAt
	}

	return refreshToken, nil
}

func parseMillis(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing value")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
