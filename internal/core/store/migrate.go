package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// migrations are applied in order; their index+1 is the schema version.
// Append only.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS response_cache (
			cache_key TEXT PRIMARY KEY,
			etag TEXT NOT NULL,
			headers TEXT NOT NULL,
			body BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_response_cache_stored ON response_cache(stored_at)`,
	},
	{
		`ALTER TABLE response_cache ADD COLUMN hits INTEGER NOT NULL DEFAULT 0`,
	},
}

// SchemaVersion is the version Migrate brings a database to.
var SchemaVersion = len(migrations)

// Migrate applies pending migrations. Running it on an up-to-date database
// does nothing.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.Version(ctx)
	if err != nil {
		return err
	}
	for version := current + 1; version <= len(migrations); version++ {
		if err := s.apply(ctx, version); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the highest applied migration, 0 for a fresh database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var version int
	row := s.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) apply(ctx context.Context, version int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migrations[version-1] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, time.Now().Unix()); err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return tx.Commit()
}
