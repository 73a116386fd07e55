package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutAndSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1", Result{Index: 1, Speaker: "Speaker 2", ImageURL: "https://img/2"}))
	require.NoError(t, store.Put(ctx, "session-1", Result{Index: 0, Speaker: "Speaker 1", ImageURL: "https://img/1"}))

	results, err := store.Snapshot(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Ordered by utterance index regardless of write order.
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, "https://img/1", results[0].ImageURL)
}

func TestMemoryStore_SameSpeakerDistinctIndexes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0, Speaker: "Speaker 1", ImageURL: "https://img/a"}))
	require.NoError(t, store.Put(ctx, "s", Result{Index: 2, Speaker: "Speaker 1", Err: "generation failed"}))

	results, err := store.Snapshot(ctx, "s")
	require.NoError(t, err)
	require.Len(t, results, 2, "results from the same speaker must not overwrite each other")
	assert.Equal(t, "https://img/a", results[0].ImageURL)
	assert.Equal(t, "generation failed", results[1].Err)
}

func TestMemoryStore_OverwriteSameIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0, Err: "transient"}))
	require.NoError(t, store.Put(ctx, "s", Result{Index: 0, ImageURL: "https://img/retry"}))

	results, err := store.Snapshot(ctx, "s")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://img/retry", results[0].ImageURL)
	assert.Empty(t, results[0].Err)
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", Result{Index: 0, ImageURL: "https://img/a"}))
	require.NoError(t, store.Put(ctx, "b", Result{Index: 0, ImageURL: "https://img/b"}))

	results, err := store.Snapshot(ctx, "a")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://img/a", results[0].ImageURL)
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := NewMemoryStore(WithMemoryTTL(time.Minute), withClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "old", Result{Index: 0, ImageURL: "https://img/x"}))

	now = now.Add(2 * time.Minute)

	results, err := store.Snapshot(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, results)

	// Next write evicts the expired entry entirely.
	require.NoError(t, store.Put(ctx, "fresh", Result{Index: 0}))
	store.mu.RLock()
	_, stillThere := store.sessions["old"]
	store.mu.RUnlock()
	assert.False(t, stillThere)
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s", Result{Index: 0}))
	require.NoError(t, store.Clear(ctx, "s"))

	results, err := store.Snapshot(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_EmptySessionID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, "", Result{}), ErrInvalidSession)
	_, err := store.Snapshot(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestMemoryStore_SnapshotUnknownSession(t *testing.T) {
	store := NewMemoryStore()

	results, err := store.Snapshot(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, results)
}
