package session

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/domain"
)

// MemoryStore holds sessions in an in-process expirable LRU. Suited to
// single-instance deployments; capacity eviction and TTL expiry both
// surface as ErrSessionNotFound on Get.
type MemoryStore struct {
	cache  *expirable.LRU[string, *domain.VariantSet]
	logger *logrus.Logger
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(config domain.SessionConfig, logger *logrus.Logger) *MemoryStore {
	maxEntries := config.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &MemoryStore{
		cache:  expirable.NewLRU[string, *domain.VariantSet](maxEntries, nil, ttlOrDefault(config)),
		logger: logger,
	}
}

// Put stores a variant set under the given session ID
func (m *MemoryStore) Put(_ context.Context, sessionID string, set *domain.VariantSet) error {
	m.cache.Add(sessionID, set)
	return nil
}

// Get retrieves a stored variant set
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*domain.VariantSet, error) {
	set, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return set, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.cache.Remove(sessionID)
	return nil
}

// Close releases store resources
func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
