package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/config"
	"github.com/mygh/mygh/internal/core/store"
	"github.com/mygh/mygh/internal/output"
)

// openStore opens and migrates the cache database.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// withCache runs fn against the response cache, whether or not caching is
// enabled for API calls.
func withCache(ctx context.Context, fn func(db *store.Store, cfg *config.Config) error) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	db, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}
	defer db.Close() // nolint:errcheck // best-effort cleanup
	return fn(db, cfg)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the ETag response cache",
	Long: `Manage the ETag response cache.

Cached GET responses are revalidated with If-None-Match; a 304 answer is
served from the cache. Set cache.enabled=false to turn caching off.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		return withCache(cmd.Context(), func(db *store.Store, cfg *config.Config) error {
			stats, err := store.NewResponseCache(db).Stats(cmd.Context())
			if err != nil {
				return err
			}
			version, err := db.Version(cmd.Context())
			if err != nil {
				return err
			}

			location := cfg.Cache.Path + " (local)"
			if !db.Local() {
				location = redactToken(cfg.Cache.URL) + " (remote)"
			}
			pairs := [][2]string{
				{"Location", location},
				{"Schema", fmt.Sprintf("v%d of v%d", version, store.SchemaVersion)},
				{"Enabled", strconv.FormatBool(cfg.Cache.Enabled)},
				{"Entries", strconv.FormatInt(stats.Entries, 10)},
				{"Size", formatBytes(stats.Bytes)},
				{"Hits", strconv.FormatInt(stats.Hits, 10)},
			}
			if !stats.Oldest.IsZero() {
				pairs = append(pairs,
					[2]string{"Oldest", stats.Oldest.Local().Format(time.RFC3339)},
					[2]string{"Newest", stats.Newest.Local().Format(time.RFC3339)},
				)
			}

			if format == output.FormatTable {
				lines := []string{"Response cache", ""}
				for _, pair := range pairs {
					lines = append(lines, fmt.Sprintf("%s: %s", pair[0], pair[1]))
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
				return err
			}
			return render(cmd, output.KeyValues("Response cache", stats, pairs))
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd.Context(), func(db *store.Store, _ *config.Config) error {
			removed, err := store.NewResponseCache(db).Clear(cmd.Context())
			if err != nil {
				return err
			}
			printf(cmd, "Removed %d cached responses", removed)
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached responses not used within cache.ttl",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		override, _ := cmd.Flags().GetDuration("older-than")
		return withCache(cmd.Context(), func(db *store.Store, cfg *config.Config) error {
			age := cfg.Cache.TTL
			if override > 0 {
				age = override
			}
			removed, err := store.NewResponseCache(db).Prune(cmd.Context(), age)
			if err != nil {
				return err
			}
			printf(cmd, "Removed %d cached responses unused for %s", removed, age)
			return nil
		})
	},
}

func init() {
	cachePruneCmd.Flags().Duration("older-than", 0, "override cache.ttl, e.g. 72h")

	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// redactToken hides an authToken query parameter in a cache URL.
func redactToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Query().Get("authToken") == "" {
		return raw
	}
	q := u.Query()
	q.Set("authToken", "redacted")
	u.RawQuery = q.Encode()
	return u.String()
}
