package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

const redisSessionPrefix = "pharmaguard:session:"

// RedisStore holds sessions in Redis as JSON payloads with server-side TTL,
// letting multiple instances share one session space.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedisStore creates a Redis-backed session store and verifies the
// connection before returning.
func NewRedisStore(config domain.SessionConfig, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		redis:  client,
		ttl:    ttlOrDefault(config),
		logger: logger,
	}, nil
}

// Put stores a variant set under the given session ID
func (r *RedisStore) Put(ctx context.Context, sessionID string, set *domain.VariantSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal variant set: %w", err)
	}

	if err := r.redis.Set(ctx, redisSessionPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves a stored variant set
func (r *RedisStore) Get(ctx context.Context, sessionID string) (*domain.VariantSet, error) {
	val, err := r.redis.Get(ctx, redisSessionPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var set domain.VariantSet
	if err := json.Unmarshal([]byte(val), &set); err != nil {
		// Remove corrupted entry
		r.redis.Del(ctx, redisSessionPrefix+sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return &set, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.redis.Del(ctx, redisSessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.redis.Close()
}
