package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mygh/mygh/internal/config"
)

const driverLibsql = "libsql"

// Store is the libsql database behind the response cache. It is either an
// embedded SQLite file or a remote libsql/Turso database.
type Store struct {
	DB *sql.DB

	driver string
	local  bool
}

// target is where a cache configuration points.
type target struct {
	dsn   string
	local bool
}

// Open connects to the cache database described by cfg. Local files get
// their parent directory created and are tuned for concurrent mygh runs.
func Open(ctx context.Context, cfg config.CacheConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported cache driver %q (only %s is available)", driver, driverLibsql)
	}

	tgt, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, tgt.dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	s := &Store{DB: db, driver: driver, local: tgt.local}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to cache database: %w", err)
	}
	if tgt.local {
		if err := s.tuneLocal(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the connection. Closing a nil store is a no-op.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver names the SQL driver in use.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Local reports whether the store is an embedded file.
func (s *Store) Local() bool {
	return s != nil && s.local
}

// resolveTarget turns cache.url or cache.path into a libsql DSN. A URL wins
// over a path; plain paths become file: DSNs.
func resolveTarget(cfg config.CacheConfig) (target, error) {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		dsn, err := withAuthToken(raw, cfg.AuthToken)
		return target{dsn: dsn}, err
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return target{}, errors.New("cache.path or cache.url must be set")
	case path == ":memory:":
		return target{dsn: path}, nil
	case strings.HasPrefix(path, "libsql:"):
		return target{dsn: path}, nil
	case strings.HasPrefix(path, "file:"):
		local, err := filePart(path)
		if err != nil {
			return target{}, err
		}
		if err := makeParentDir(local); err != nil {
			return target{}, err
		}
		return target{dsn: path, local: true}, nil
	default:
		if err := makeParentDir(path); err != nil {
			return target{}, err
		}
		return target{dsn: "file:" + filepath.Clean(path), local: true}, nil
	}
}

// tuneLocal allows a single writer connection and lets concurrent runs
// wait on the file lock rather than fail with SQLITE_BUSY.
func (s *Store) tuneLocal(ctx context.Context) error {
	s.DB.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		// journal_mode answers with a row, so Exec is not enough
		rows, err := s.DB.QueryContext(ctx, pragma)
		if err != nil {
			return fmt.Errorf("tune cache database (%s): %w", pragma, err)
		}
		_ = rows.Close()
	}
	return nil
}

// withAuthToken appends authToken to a remote DSN unless it already has one.
func withAuthToken(dsn, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid cache url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return dsn, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func filePart(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid cache path: %w", err)
	}
	if u.Path != "" {
		return strings.TrimPrefix(u.Path, "//"), nil
	}
	return strings.TrimPrefix(u.Opaque, "//"), nil
}

func makeParentDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- cache directories use 0755 like other user dirs
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	return nil
}
