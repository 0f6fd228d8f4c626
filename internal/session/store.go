// Package session persists parsed variant sets between upload and analysis.
// Every backend implements domain.SessionStore with uniform TTL semantics:
// Get of an unknown or expired session returns domain.ErrSessionNotFound.
package session

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/database"
	"github.com/pharmaguard-server/internal/domain"
)

// Supported session backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const (
	defaultTTL        = 1 * time.Hour
	defaultMaxEntries = 1000
)

// NewStore creates the session store selected by config.Backend. An empty
// backend selects the in-memory store. The postgres backend requires an
// established connection pool with migrations already applied.
func NewStore(config domain.SessionConfig, db *database.DB, logger *logrus.Logger) (domain.SessionStore, error) {
	switch config.Backend {
	case "", BackendMemory:
		return NewMemoryStore(config, logger), nil
	case BackendRedis:
		return NewRedisStore(config, logger)
	case BackendSQLite:
		return NewSQLiteStore(config, logger)
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres session backend requires a database connection")
		}
		return NewPostgresStore(db, config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", config.Backend)
	}
}

func ttlOrDefault(config domain.SessionConfig) time.Duration {
	if config.TTL > 0 {
		return config.TTL
	}
	return defaultTTL
}
