package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/config"
	"github.com/mygh/mygh/internal/core/auth"
	"github.com/mygh/mygh/internal/core/engine"
	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/observability"
)

// doctorCheck is one diagnostic step. It returns a short detail on success.
type doctorCheck struct {
	name string
	run  func(ctx context.Context) (string, error)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check configuration, credentials, the response cache and API reachability, and suggest fixes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		failed := runDoctor(cmd.Context(), doctorChecks(cfg))
		if failed > 0 {
			return fmt.Errorf("%d diagnostic check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorChecks(cfg *config.Config) []doctorCheck {
	return []doctorCheck{
		{"config file", func(context.Context) (string, error) {
			path := configPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return path + " (not created yet, using defaults)", nil
			}
			return path, nil
		}},
		{"credentials", func(ctx context.Context) (string, error) {
			cred, err := auth.NewResolver(observability.CLILogger).Resolve(ctx)
			if err != nil {
				return "", fmt.Errorf("%w; %s", err, auth.SetupGuidance)
			}
			return "found via " + string(cred.Source), nil
		}},
		{"response cache", func(ctx context.Context) (string, error) {
			if !cfg.Cache.Enabled {
				return "disabled", nil
			}
			db, err := openStore(ctx, cfg)
			if err != nil {
				return "", err
			}
			_ = db.Close()
			return cfg.Cache.Path, nil
		}},
		{"API access", func(ctx context.Context) (string, error) {
			client, err := engine.New(clientOptions(cfg))
			if err != nil {
				return "", err
			}
			states, err := github.NewService(client, cfg.Concurrency, observability.CLILogger).RateLimit(ctx)
			if err != nil {
				return "", err
			}
			for _, s := range states {
				if s.Resource == engine.ResourceCore {
					return fmt.Sprintf("%s, %d of %d core requests left", cfg.APIURL, s.Remaining, s.Limit), nil
				}
			}
			return cfg.APIURL, nil
		}},
	}
}

// runDoctor logs each check and returns the number that failed.
func runDoctor(ctx context.Context, checks []doctorCheck) int {
	logger := observability.CLILogger
	logger.Info("=== mygh doctor ===")

	failed := 0
	for i, check := range checks {
		started := time.Now()
		detail, err := check.run(ctx)
		prefix := fmt.Sprintf("[%d/%d] Checking %s...", i+1, len(checks), check.name)
		if err != nil {
			failed++
			logger.Error(prefix+" ❌ "+err.Error(), zap.String("check", check.name))
			continue
		}
		logger.Info(prefix+" ✅ "+detail,
			zap.String("check", check.name),
			zap.Duration("duration", time.Since(started)),
		)
	}

	if failed == 0 {
		logger.Info("All checks passed")
	}
	return failed
}
