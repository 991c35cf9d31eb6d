package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mygh/mygh/internal/core/engine"
)

// ResponseCache persists ETag-validated GET responses so later runs can
// revalidate with If-None-Match. It satisfies engine.ResponseCache.
type ResponseCache struct {
	store *Store
	Clock func() time.Time
}

var _ engine.ResponseCache = (*ResponseCache)(nil)

// CacheStats summarizes the cache table.
type CacheStats struct {
	Entries int64     `json:"entries"`
	Bytes   int64     `json:"bytes"`
	Hits    int64     `json:"hits"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
}

// NewResponseCache wraps a migrated store.
func NewResponseCache(s *Store) *ResponseCache {
	return &ResponseCache{store: s}
}

// Lookup returns the entry for key, or nil when absent. It does not count
// as a hit; the server may still answer with a fresh body.
func (c *ResponseCache) Lookup(ctx context.Context, key string) (*engine.CachedResponse, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var (
		etag     string
		headers  string
		body     []byte
		storedAt int64
	)
	row := c.store.DB.QueryRowContext(ctx, `
		SELECT etag, headers, body, stored_at
		FROM response_cache
		WHERE cache_key = ?
	`, key)
	if err := row.Scan(&etag, &headers, &body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	header := make(http.Header)
	if headers != "" {
		if err := json.Unmarshal([]byte(headers), &header); err != nil {
			return nil, fmt.Errorf("decode cached headers: %w", err)
		}
	}

	return &engine.CachedResponse{
		ETag:     etag,
		Header:   header,
		Body:     body,
		StoredAt: time.Unix(storedAt, 0).UTC(),
	}, nil
}

// RecordHit counts a revalidated (304) use of key and refreshes its
// last-used time. Unknown keys are ignored.
func (c *ResponseCache) RecordHit(ctx context.Context, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := c.store.DB.ExecContext(ctx, `
		UPDATE response_cache SET hits = hits + 1, last_used_at = ? WHERE cache_key = ?
	`, c.now().Unix(), strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("record cache hit: %w", err)
	}
	return nil
}

// Save upserts the entry for key.
func (c *ResponseCache) Save(ctx context.Context, key string, entry engine.CachedResponse) error {
	if err := c.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}
	if strings.TrimSpace(entry.ETag) == "" {
		return nil
	}

	headers, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode cached headers: %w", err)
	}

	stored := entry.StoredAt
	if stored.IsZero() {
		stored = c.now()
	}

	_, err = c.store.DB.ExecContext(ctx, `
		INSERT INTO response_cache (cache_key, etag, headers, body, stored_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			etag = excluded.etag,
			headers = excluded.headers,
			body = excluded.body,
			stored_at = excluded.stored_at,
			last_used_at = excluded.last_used_at
	`, key, entry.ETag, string(headers), entry.Body, stored.Unix(), c.now().Unix())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}
	return nil
}

// Prune deletes entries not used within maxAge and returns how many were
// removed.
func (c *ResponseCache) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if maxAge <= 0 {
		return 0, errors.New("prune age must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := c.now().Add(-maxAge).Unix()
	res, err := c.store.DB.ExecContext(ctx, `DELETE FROM response_cache WHERE last_used_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune response cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every entry.
func (c *ResponseCache) Clear(ctx context.Context) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := c.store.DB.ExecContext(ctx, `DELETE FROM response_cache`)
	if err != nil {
		return 0, fmt.Errorf("clear response cache: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports entry counts and sizes.
func (c *ResponseCache) Stats(ctx context.Context) (CacheStats, error) {
	if err := c.ready(); err != nil {
		return CacheStats{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats  CacheStats
		bytes  sql.NullInt64
		hits   sql.NullInt64
		oldest sql.NullInt64
		newest sql.NullInt64
	)
	row := c.store.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(LENGTH(body)), SUM(hits), MIN(stored_at), MAX(stored_at)
		FROM response_cache
	`)
	if err := row.Scan(&stats.Entries, &bytes, &hits, &oldest, &newest); err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}

	stats.Bytes = bytes.Int64
	stats.Hits = hits.Int64
	if oldest.Valid {
		stats.Oldest = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		stats.Newest = time.Unix(newest.Int64, 0).UTC()
	}
	return stats, nil
}

func (c *ResponseCache) ready() error {
	if c == nil || c.store == nil || c.store.DB == nil {
		return errors.New("store is not initialized")
	}
	return nil
}

func (c *ResponseCache) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
