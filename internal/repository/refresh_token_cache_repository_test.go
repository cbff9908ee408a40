package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"e-transfer-auth/config"
	"e-transfer-auth/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cacheNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newCacheRepo(t *testing.T) (*RefreshTokenCacheRepository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	repo := NewRefreshTokenCacheRepository(&config.RedisClient{Client: client})
	repo.now = func() time.Time { return cacheNow }
	return repo, mr
}

func newRecord(token string, userID int64) *model.RefreshToken {
	return &model.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: cacheNow.Add(24 * time.Hour),
	}
}

func TestRefreshTokenCache_SaveAndFind(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	record := newRecord("refresh-1", 5)
	require.NoError(t, repo.Save(ctx, record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, model.HashToken("refresh-1"), record.TokenHash)

	// only the digest is used as key
	assert.True(t, mr.Exists(refreshTokenKeyPrefix+record.TokenHash))
	assert.False(t, mr.Exists(refreshTokenKeyPrefix+"refresh-1"))

	found, err := repo.FindByToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, int64(5), found.UserID)
	assert.True(t, found.ExpiresAt.Equal(record.ExpiresAt))
	assert.False(t, found.Revoked)
	assert.Nil(t, found.RevokedAt)
	assert.Equal(t, "refresh-1", found.Token)
}

func TestRefreshTokenCache_SaveDuplicate(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newRecord("refresh-1", 5)))
	err := repo.Save(ctx, newRecord("refresh-1", 5))
	assert.ErrorIs(t, err, model.ErrDuplicateToken)
}

func TestRefreshTokenCache_FindUnknown(t *testing.T) {
	repo, _ := newCacheRepo(t)

	_, err := repo.FindByToken(context.Background(), "never-issued")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokenCache_Revoke(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	record := newRecord("refresh-1", 5)
	require.NoError(t, repo.Save(ctx, record))

	require.NoError(t, repo.Revoke(ctx, record))
	require.NoError(t, repo.Revoke(ctx, record), "revoking twice is not an error")

	found, err := repo.FindByToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.True(t, found.Revoked)
	require.NotNil(t, found.RevokedAt)
	assert.False(t, found.Usable(cacheNow))

	err = repo.Revoke(ctx, newRecord("unknown", 5))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokenCache_Rotate(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	current := newRecord("refresh-1", 5)
	require.NoError(t, repo.Save(ctx, current))

	replacement := newRecord("refresh-2", 5)
	require.NoError(t, repo.Rotate(ctx, current, replacement))

	old, err := repo.FindByToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	fresh, err := repo.FindByToken(ctx, "refresh-2")
	require.NoError(t, err)
	assert.False(t, fresh.Revoked)
	assert.Equal(t, replacement.ID, fresh.ID)

	// a second rotation of the same token loses
	err = repo.Rotate(ctx, current, newRecord("refresh-3", 5))
	assert.ErrorIs(t, err, model.ErrTokenAlreadyRevoked)

	_, err = repo.FindByToken(ctx, "refresh-3")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokenCache_RotateExpired(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	current := newRecord("refresh-1", 5)
	current.ExpiresAt = cacheNow.Add(-time.Minute)
	require.NoError(t, repo.Save(ctx, current))

	// still readable after expiry, so it reads as expired rather than unknown
	found, err := repo.FindByToken(ctx, "refresh-1")
	require.NoError(t, err)
	assert.False(t, found.Usable(cacheNow))

	err = repo.Rotate(ctx, current, newRecord("refresh-2", 5))
	assert.ErrorIs(t, err, model.ErrTokenAlreadyRevoked)
}

func TestRefreshTokenCache_RotateUnknown(t *testing.T) {
	repo, _ := newCacheRepo(t)

	err := repo.Rotate(context.Background(), newRecord("missing", 5), newRecord("refresh-2", 5))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRefreshTokenCache_ConcurrentRotateHasOneWinner(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newRecord("refresh-1", 5)))

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		revoked int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			current := newRecord("refresh-1", 5)
			err := repo.Rotate(ctx, current, newRecord(fmt.Sprintf("replacement-%d", i), 5))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, model.ErrTokenAlreadyRevoked):
				revoked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, revoked)
}

func TestRefreshTokenCache_RevokeAllForUser(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, newRecord(fmt.Sprintf("user5-%d", i), 5)))
	}
	other := newRecord("user6-0", 6)
	require.NoError(t, repo.Save(ctx, other))

	first := newRecord("user5-0", 5)
	require.NoError(t, repo.Revoke(ctx, first))

	revoked, err := repo.RevokeAllForUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)

	for i := 0; i < 3; i++ {
		found, err := repo.FindByToken(ctx, fmt.Sprintf("user5-%d", i))
		require.NoError(t, err)
		assert.True(t, found.Revoked)
	}

	untouched, err := repo.FindByToken(ctx, "user6-0")
	require.NoError(t, err)
	assert.False(t, untouched.Revoked)

	revoked, err = repo.RevokeAllForUser(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, revoked)
}
