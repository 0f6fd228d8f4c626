package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/pharmaguard-server/internal/domain"
)

// SQLiteStore persists sessions in a local SQLite file. Expired rows are
// rejected on read and swept lazily on write, so the file stays bounded
// without a background goroutine.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSQLiteStore creates a SQLite-backed session store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(config domain.SessionConfig, logger *logrus.Logger) (*SQLiteStore, error) {
	if config.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite session backend requires a database path")
	}

	// Ensure directory exists
	dir := filepath.Dir(config.SQLitePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSessionSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		ttl:    ttlOrDefault(config),
		logger: logger,
	}, nil
}

func createSessionSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Put stores a variant set under the given session ID, replacing any
// previous payload, and sweeps expired rows.
func (s *SQLiteStore) Put(ctx context.Context, sessionID string, set *domain.VariantSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal variant set: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions (session_id, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, string(data), now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now); err != nil {
		s.logger.WithError(err).Warn("Failed to sweep expired sessions")
	}
	return nil
}

// Get retrieves a stored variant set
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*domain.VariantSet, error) {
	var payload string
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM sessions WHERE session_id = ?",
		sessionID,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if time.Now().After(expiresAt) {
		s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
		return nil, domain.ErrSessionNotFound
	}

	var set domain.VariantSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variant set: %w", err)
	}
	return &set, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	return err
}

// Close closes the store and releases resources
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
