// Package cache keeps API responses in a local SQLite database.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// DefaultCacheTTL is the default time-to-live for cached entries (30 days)
	DefaultCacheTTL = 720 * time.Hour
	// NegativeCacheTTL is the default TTL for "not found" responses (1 day)
	NegativeCacheTTL = 24 * time.Hour
)

// FetchFunc represents a function that fetches data from an external source
type FetchFunc[T any] func() (T, error)

// TTLFunc picks how long a fetched value stays cached. Zero or negative means
// the value is not stored.
type TTLFunc[T any] func(T) time.Duration

// CacheDB manages the SQLite database connection for caching
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	now  func() time.Time
}

// Open opens (or creates) the cache database at dbPath and makes sure every
// cache table exists.
func Open(dbPath string) (*CacheDB, error) {
	c, err := NewCacheDB(dbPath)
	if err != nil {
		return nil, err
	}
	for _, schema := range AllCacheSchemas {
		if err := c.CreateTable(schema); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), c.Close())
		}
	}
	return c, nil
}

// NewCacheDB creates a new CacheDB instance and opens the database connection
func NewCacheDB(dbPath string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	return &CacheDB{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}, nil
}

// Path returns the database file path.
func (c *CacheDB) Path() string {
	return c.path
}

// CreateTable creates a table using the provided schema
func (c *CacheDB) CreateTable(schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *CacheDB) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// validateTableName checks if the table name is in the whitelist
// to prevent SQL injection attacks
func validateTableName(tableName string) error {
	if !ValidCacheTableNames[tableName] {
		return fmt.Errorf("invalid cache table name: %s", tableName)
	}
	return nil
}

// Get retrieves an unexpired value from the specified table.
// Returns the cached data, whether it was found, and any error.
func (c *CacheDB) Get(tableName, key string) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf(`
		SELECT data, expires_at
		FROM %s
		WHERE cache_key = ?
	`, tableName)

	var data string
	var expiresAt int64
	err := c.db.QueryRow(query, key).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if c.now().Unix() >= expiresAt {
		slog.Debug("Cache expired", "table", tableName, "key", key)
		return "", false, nil
	}

	return data, true, nil
}

// Set stores a value that expires after ttl.
func (c *CacheDB) Set(tableName, key, data string, ttl time.Duration) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (cache_key, data, cached_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, tableName)

	if _, err := c.db.Exec(query, key, data, now.Unix(), now.Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// ClearExpired removes expired entries from the specified table and returns
// how many were deleted.
func (c *CacheDB) ClearExpired(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at <= ?", tableName)
	result, err := c.db.Exec(query, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("Cleared expired cache entries", "table", tableName, "count", rows)
	}
	return rows, nil
}

// ClearAll removes all entries from the specified table and returns how many
// were deleted.
func (c *CacheDB) ClearAll(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	slog.Debug("Cache table cleared", "table", tableName, "rows_deleted", rows)
	return rows, nil
}

// GetOrFetchWithTTL returns the cached value for key or calls fetchFunc and
// caches its result for ttl(result). A nil cache always fetches.
// Fetch errors are returned and never cached. Cache failures are logged and
// do not fail the call.
func GetOrFetchWithTTL[T any](c *CacheDB, tableName, key string, fetchFunc FetchFunc[T], ttl TTLFunc[T]) (T, bool, error) {
	var zero T

	if c == nil {
		data, err := fetchFunc()
		return data, false, err
	}

	cached, found, err := c.Get(tableName, key)
	if err != nil {
		slog.Warn("Cache lookup failed, fetching directly", "table", tableName, "key", key, "error", err)
	} else if found {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", tableName, "key", key)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "table", tableName, "key", key, "error", err)
	}

	slog.Debug("Cache miss, fetching data", "table", tableName, "key", key)
	data, err := fetchFunc()
	if err != nil {
		return zero, false, fmt.Errorf("failed to fetch data: %w", err)
	}

	d := DefaultCacheTTL
	if ttl != nil {
		d = ttl(data)
	}
	if d <= 0 {
		slog.Debug("Skipping cache store per policy", "table", tableName, "key", key)
		return data, false, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "table", tableName, "key", key, "error", err)
		return data, false, nil
	}
	if err := c.Set(tableName, key, string(jsonData), d); err != nil {
		slog.Warn("Failed to cache data", "table", tableName, "key", key, "error", err)
	} else {
		slog.Debug("Data cached successfully", "table", tableName, "key", key, "ttl", d)
	}

	return data, false, nil
}

// SelectNegativeCacheTTL returns a TTLFunc that keeps "not found" answers for
// negative and everything else for positive.
func SelectNegativeCacheTTL[T any](positive, negative time.Duration, isNotFound func(T) bool) TTLFunc[T] {
	return func(result T) time.Duration {
		if isNotFound(result) {
			return negative
		}
		return positive
	}
}
