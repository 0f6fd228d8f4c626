package explain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

const redisKeyPrefix = "pharmaguard:cache:explain:"

// CacheConfig defines configuration for explanation caching
type CacheConfig struct {
	// Redis client for the distributed tier, optional
	RedisClient *redis.Client
	// Default TTL for cached explanations
	DefaultTTL time.Duration
	// Maximum entry count for the in-memory tier
	MaxMemoryEntries int
	// Enable/disable caching
	Enabled bool
}

// cachedExplanation is the stored form of one explanation
type cachedExplanation struct {
	Explanation domain.Explanation `json:"explanation"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// CachedExplainer wraps an Explainer with a two-tier cache: an in-process
// LRU backed by an optional shared Redis tier. Identical facts produce
// identical narratives, so caching is transparent to report content while
// avoiding repeat LLM calls for the same verdict.
type CachedExplainer struct {
	delegate   domain.Explainer
	config     CacheConfig
	memory     *lru.Cache
	stats      CacheStats
	statsMutex sync.RWMutex
	logger     *logrus.Logger
}

// NewCachedExplainer creates a caching wrapper around the given explainer.
func NewCachedExplainer(delegate domain.Explainer, config CacheConfig, logger *logrus.Logger) (*CachedExplainer, error) {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 1 * time.Hour
	}
	if config.MaxMemoryEntries == 0 {
		config.MaxMemoryEntries = 1024
	}

	memory, err := lru.New(config.MaxMemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return &CachedExplainer{
		delegate: delegate,
		config:   config,
		memory:   memory,
		logger:   logger,
	}, nil
}

// Explain returns a cached narrative when one exists for these facts and
// delegates otherwise. Delegate errors are returned unchanged so callers
// keep their own fallback behavior.
func (ce *CachedExplainer) Explain(ctx context.Context, facts domain.ExplanationFacts) (*domain.Explanation, error) {
	if !ce.config.Enabled {
		return ce.delegate.Explain(ctx, facts)
	}

	key := generateKey(facts)

	if cached, found := ce.lookup(ctx, key); found {
		ce.updateStats(true, false)
		explanation := cached.Explanation
		return &explanation, nil
	}
	ce.updateStats(false, false)

	explanation, err := ce.delegate.Explain(ctx, facts)
	if err != nil {
		return nil, err
	}

	ce.store(ctx, key, explanation)
	return explanation, nil
}

// Stats returns a snapshot of cache performance counters
func (ce *CachedExplainer) Stats() CacheStats {
	ce.statsMutex.RLock()
	defer ce.statsMutex.RUnlock()
	return ce.stats
}

// generateKey creates a unique cache key for one set of explanation facts
func generateKey(facts domain.ExplanationFacts) string {
	factBytes, _ := json.Marshal(facts)
	hash := sha256.Sum256(append([]byte("explain::"), factBytes...))
	return hex.EncodeToString(hash[:])
}

func (ce *CachedExplainer) lookup(ctx context.Context, key string) (*cachedExplanation, bool) {
	// Check memory cache first
	if value, exists := ce.memory.Get(key); exists {
		cached := value.(*cachedExplanation)
		if time.Now().Before(cached.ExpiresAt) {
			return cached, true
		}
		// Expired entry, remove it
		ce.memory.Remove(key)
	}

	// Check Redis cache if available
	if ce.config.RedisClient != nil {
		data, err := ce.config.RedisClient.Get(ctx, redisKeyPrefix+key).Bytes()
		if err == nil {
			var cached cachedExplanation
			if err := json.Unmarshal(data, &cached); err == nil {
				if time.Now().Before(cached.ExpiresAt) {
					// Store in memory cache for faster access
					if ce.memory.Add(key, &cached) {
						ce.updateStats(false, true)
					}
					return &cached, true
				}
				// Remove expired entry from Redis
				ce.config.RedisClient.Del(ctx, redisKeyPrefix+key)
			}
		}
	}

	return nil, false
}

func (ce *CachedExplainer) store(ctx context.Context, key string, explanation *domain.Explanation) {
	now := time.Now()
	cached := &cachedExplanation{
		Explanation: *explanation,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ce.config.DefaultTTL),
	}

	if ce.memory.Add(key, cached) {
		ce.updateStats(false, true)
	}

	if ce.config.RedisClient != nil {
		data, err := json.Marshal(cached)
		if err != nil {
			ce.logger.WithError(err).Warn("Failed to marshal explanation for cache")
			return
		}
		if err := ce.config.RedisClient.Set(ctx, redisKeyPrefix+key, data, ce.config.DefaultTTL).Err(); err != nil {
			ce.logger.WithError(err).Warn("Failed to store explanation in Redis cache")
		}
	}
}

func (ce *CachedExplainer) updateStats(hit, eviction bool) {
	ce.statsMutex.Lock()
	defer ce.statsMutex.Unlock()
	if hit {
		ce.stats.Hits++
	} else if !eviction {
		ce.stats.Misses++
	}
	if eviction {
		ce.stats.Evictions++
	}
}
