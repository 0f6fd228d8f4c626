package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-server/internal/domain"
)

// getTestRedisStore returns a Redis-backed store for testing.
// Skip test if TEST_REDIS_URL is not set.
func getTestRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	store, err := NewRedisStore(domain.SessionConfig{RedisURL: redisURL, TTL: ttl}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := getTestRedisStore(t, time.Hour)
	ctx := context.Background()

	set := sessionVariantSet()
	require.NoError(t, store.Put(ctx, "redis-round-trip", set))
	defer store.Delete(ctx, "redis-round-trip")

	got, err := store.Get(ctx, "redis-round-trip")
	require.NoError(t, err)
	assertSameVariantSet(t, set, got)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store := getTestRedisStore(t, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "redis-short-lived", sessionVariantSet()))

	time.Sleep(100 * time.Millisecond)

	_, err := store.Get(ctx, "redis-short-lived")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	store := getTestRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "redis-deleted", sessionVariantSet()))
	require.NoError(t, store.Delete(ctx, "redis-deleted"))

	_, err := store.Get(ctx, "redis-deleted")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Deleting an unknown session is not an error
	require.NoError(t, store.Delete(ctx, "redis-deleted"))
}

func TestRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(domain.SessionConfig{RedisURL: "not-a-url"}, testLogger())
	require.Error(t, err)
}
