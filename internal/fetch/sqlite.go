package fetch

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCache persists long-lived cache entries (accounts documents, postcode
// lookups) across sessions, so re-running the same prospecting filters the
// next day stays cheap.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens (creating if necessary) the cache database at dbPath.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS fetch_cache (
			key        TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fetch_cache_expires ON fetch_cache(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteCache{db: db, now: time.Now}, nil
}

// Get retrieves a body if present and not expired.
func (c *SQLiteCache) Get(key string) ([]byte, bool) {
	var body []byte
	var expiresAt int64
	err := c.db.QueryRow(
		"SELECT body, expires_at FROM fetch_cache WHERE key = ?", key,
	).Scan(&body, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		slog.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}
	if c.now().Unix() > expiresAt {
		return nil, false
	}
	return body, true
}

// Set stores a body, replacing any previous entry for the key.
func (c *SQLiteCache) Set(key string, value []byte, ttl time.Duration) {
	expiresAt := c.now().Add(ttl).Unix()
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO fetch_cache (key, body, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt,
	)
	if err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

// Prune deletes expired entries.
func (c *SQLiteCache) Prune() error {
	_, err := c.db.Exec("DELETE FROM fetch_cache WHERE expires_at < ?", c.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

var _ Cache = (*SQLiteCache)(nil)
var _ Cache = (*MemoryCache)(nil)
