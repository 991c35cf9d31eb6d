package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/config"
	"github.com/mygh/mygh/internal/core/auth"
	"github.com/mygh/mygh/internal/core/engine"
	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/core/store"
	"github.com/mygh/mygh/internal/observability"
)

// spinnerThreshold is the shortest wait that gets a progress spinner.
const spinnerThreshold = 2 * time.Second

// newService builds the domain service for one command run. The returned
// cleanup closes the response cache.
func newService(ctx context.Context) (*github.Service, func(), error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}

	cache, closeCache := openCache(ctx, cfg)
	opts := clientOptions(cfg)
	if cache != nil {
		opts.Cache = cache
	}
	opts.Sleep = waitWithSpinner(os.Stderr)

	client, err := engine.New(opts)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return github.NewService(client, cfg.Concurrency, observability.CLILogger), closeCache, nil
}

// clientOptions maps configuration onto engine options.
func clientOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		BaseURL:  cfg.APIURL,
		Resolver: auth.NewResolver(observability.CLILogger),
		Retry: engine.RetryConfig{
			MaxAttempts:             cfg.MaxRetries,
			InitialBackoff:          cfg.Retry.InitialBackoff,
			MaxBackoff:              cfg.Retry.MaxBackoff,
			BackoffMultiplier:       cfg.Retry.Multiplier,
			JitterRatio:             cfg.Retry.Jitter,
			SecondaryRateLimitDelay: cfg.Retry.SecondaryDelay,
		},
		Timeout:           cfg.RequestTimeout,
		UserAgent:         userAgent(),
		PerPage:           cfg.DefaultPerPage,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Logger:            observability.CLILogger,
	}
}

func userAgent() string {
	if versionInfo.Version == "" {
		return engine.DefaultUserAgent
	}
	return fmt.Sprintf("%s/%s", engine.DefaultUserAgent, versionInfo.Version)
}

// openCache opens the response cache when enabled. A cache that cannot be
// opened is logged and skipped; commands still work uncached.
func openCache(ctx context.Context, cfg *config.Config) (*store.ResponseCache, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		if observability.CLILogger != nil {
			observability.CLILogger.Warn("Response cache unavailable, continuing without it", zap.Error(err))
		}
		return nil, noop
	}
	return store.NewResponseCache(db), func() { _ = db.Close() }
}

// waitWithSpinner sleeps like engine.SleepContext and shows a spinner on w
// for waits long enough to look like a hang. The spinner only draws when w
// is a terminal.
func waitWithSpinner(w io.Writer) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if d < spinnerThreshold {
			return engine.SleepContext(ctx, d)
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = fmt.Sprintf(" waiting %s for the GitHub API", d.Round(time.Second))
		s.Start()
		defer s.Stop()
		return engine.SleepContext(ctx, d)
	}
}
