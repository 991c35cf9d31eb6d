package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
	"github.com/mygh/mygh/internal/output"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Show the remaining API quota per resource",
	Long: `Show the remaining API quota per resource.

The /rate_limit endpoint does not count against the quota.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		server, err := svc.RateLimit(cmd.Context())
		if err != nil {
			return err
		}
		states := mergeRateLimits(server, svc.Client().RateLimits())

		now := time.Now()
		if format == output.FormatTable {
			if summary := rateLimitSummary(states, now); summary != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(summary, 0))
			}
		}
		return render(cmd, output.RateLimits(states, now))
	},
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)
}

// mergeRateLimits combines the server's view with quotas the client
// observed in response headers. The server's view wins per resource.
func mergeRateLimits(server, observed []core.RateLimitState) []core.RateLimitState {
	seen := make(map[string]bool, len(server))
	merged := make([]core.RateLimitState, 0, len(server)+len(observed))
	for _, s := range server {
		seen[s.Resource] = true
		merged = append(merged, s)
	}
	for _, s := range observed {
		if !seen[s.Resource] {
			merged = append(merged, s)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if (merged[i].Resource == engine.ResourceCore) != (merged[j].Resource == engine.ResourceCore) {
			return merged[i].Resource == engine.ResourceCore
		}
		return merged[i].Resource < merged[j].Resource
	})
	return merged
}

// rateLimitSummary headlines the core and search quotas.
func rateLimitSummary(states []core.RateLimitState, now time.Time) string {
	lines := []string{"GitHub API quota", ""}
	for _, s := range states {
		if s.Resource != engine.ResourceCore && s.Resource != engine.ResourceSearch {
			continue
		}
		line := fmt.Sprintf("%s: %d of %d remaining", s.Resource, s.Remaining, s.Limit)
		if s.Exhausted(now) {
			line += ", exhausted until " + output.ResetDescription(s.ResetAt, now)
		} else if reset := output.ResetDescription(s.ResetAt, now); reset != "" {
			line += ", resets " + reset
		}
		lines = append(lines, line)
	}
	if len(lines) == 2 {
		return ""
	}
	return strings.Join(lines, "\n")
}
