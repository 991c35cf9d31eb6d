package github

import (
	"context"
	"sort"
	"time"

	"github.com/mygh/mygh/internal/core"
)

type rateLimitResource struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Used      int   `json:"used"`
	Reset     int64 `json:"reset"`
}

type rateLimitResponse struct {
	Resources map[string]rateLimitResource `json:"resources"`
}

// RateLimit asks GitHub for the quota of every resource. The endpoint is
// not charged against the core quota.
func (s *Service) RateLimit(ctx context.Context) ([]core.RateLimitState, error) {
	var body rateLimitResponse
	if err := s.client.GetJSON(ctx, "/rate_limit", nil, &body); err != nil {
		return nil, err
	}

	observed := time.Now().UTC()
	states := make([]core.RateLimitState, 0, len(body.Resources))
	for name, r := range body.Resources {
		states = append(states, core.RateLimitState{
			Resource:   name,
			Limit:      r.Limit,
			Remaining:  r.Remaining,
			Used:       r.Used,
			ResetAt:    time.Unix(r.Reset, 0).UTC(),
			ObservedAt: observed,
		})
	}
	sort.Slice(states, func(i, j int) bool {
		// core first, then alphabetical
		if (states[i].Resource == "core") != (states[j].Resource == "core") {
			return states[i].Resource == "core"
		}
		return states[i].Resource < states[j].Resource
	})
	return states, nil
}
