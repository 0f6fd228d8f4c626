package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/database"
	"github.com/pharmaguard-server/internal/domain"
)

// PostgresStore persists sessions in Postgres through the shared connection
// pool. The sessions table is created by migrations; expiry mirrors the
// SQLite backend (rejected on read, swept on write).
type PostgresStore struct {
	db     *database.DB
	ttl    time.Duration
	logger *logrus.Logger
}

// NewPostgresStore creates a Postgres-backed session store on an
// established pool. The store takes ownership of the pool and closes it
// with Close.
func NewPostgresStore(db *database.DB, config domain.SessionConfig, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		ttl:    ttlOrDefault(config),
		logger: logger,
	}
}

// Put stores a variant set under the given session ID, replacing any
// previous payload, and sweeps expired rows.
func (p *PostgresStore) Put(ctx context.Context, sessionID string, set *domain.VariantSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal variant set: %w", err)
	}

	now := time.Now()
	_, err = p.db.Pool.Exec(ctx, `
		INSERT INTO sessions (session_id, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, sessionID, data, now, now.Add(p.ttl))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if _, err := p.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now); err != nil {
		p.logger.WithError(err).Warn("Failed to sweep expired sessions")
	}
	return nil
}

// Get retrieves a stored variant set
func (p *PostgresStore) Get(ctx context.Context, sessionID string) (*domain.VariantSet, error) {
	var payload []byte
	var expiresAt time.Time

	err := p.db.Pool.QueryRow(ctx,
		"SELECT payload, expires_at FROM sessions WHERE session_id = $1",
		sessionID,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if time.Now().After(expiresAt) {
		p.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE session_id = $1", sessionID)
		return nil, domain.ErrSessionNotFound
	}

	var set domain.VariantSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variant set: %w", err)
	}
	return &set, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (p *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	_, err := p.db.Pool.Exec(ctx, "DELETE FROM sessions WHERE session_id = $1", sessionID)
	return err
}

// Close closes the underlying connection pool
func (p *PostgresStore) Close() error {
	p.db.Close()
	return nil
}
