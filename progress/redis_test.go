package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisStore creates a test Redis store backed by miniredis.
func setupRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRedisStore(client, opts...), mr
}

func TestRedisStore_PutAndSnapshot(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1", Result{Index: 1, Speaker: "Speaker 2", ImageURL: "https://img/2"}))
	require.NoError(t, store.Put(ctx, "session-1", Result{Index: 0, Speaker: "Speaker 1", Err: "failed: nsfw filter"}))

	results, err := store.Snapshot(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, "failed: nsfw filter", results[0].Err)
	assert.Equal(t, "https://img/2", results[1].ImageURL)
}

func TestRedisStore_SnapshotEmptySession(t *testing.T) {
	store, _ := setupRedisStore(t)

	results, err := store.Snapshot(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := setupRedisStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0, ImageURL: "https://img/x"}))

	mr.FastForward(2 * time.Minute)

	results, err := store.Snapshot(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRedisStore_Clear(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0}))
	require.NoError(t, store.Clear(ctx, "s"))

	results, err := store.Snapshot(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRedisStore_EmptySessionID(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "", Result{}), ErrInvalidSession)
	_, err := store.Snapshot(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	store, mr := setupRedisStore(t, WithPrefix("custom"))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0}))
	assert.True(t, mr.Exists("custom:images:s"))
}
