package core

import "time"

// RateLimitState captures the last observed quota for one API resource.
type RateLimitState struct {
	Resource   string    `json:"resource"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	Used       int       `json:"used"`
	ResetAt    time.Time `json:"reset_at"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
}

// Exhausted reports whether the quota is spent and the reset lies after now.
func (s RateLimitState) Exhausted(now time.Time) bool {
	return s.Remaining == 0 && s.ResetAt.After(now)
}
