package engine

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mygh/mygh/internal/core"
)

// Rate limit resources tracked independently by GitHub.
const (
	ResourceCore    = "core"
	ResourceSearch  = "search"
	ResourceGraphQL = "graphql"
)

const (
	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerUsed      = "X-RateLimit-Used"
	headerReset     = "X-RateLimit-Reset"
	headerResource  = "X-RateLimit-Resource"
	headerRetry     = "Retry-After"
)

// Tracker records the last known quota per resource for one client.
// The view is advisory: the server stays authoritative.
type Tracker struct {
	Clock func() time.Time

	mu     sync.RWMutex
	states map[string]core.RateLimitState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]core.RateLimitState)}
}

// ResourceFor maps a request path to the quota bucket GitHub charges it to.
func ResourceFor(path string) string {
	p := path
	if idx := strings.Index(p, "://"); idx >= 0 {
		rest := p[idx+3:]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			p = rest[slash:]
		} else {
			p = "/"
		}
	}
	p = "/" + strings.TrimPrefix(p, "/")
	switch {
	case strings.HasPrefix(p, "/search/"):
		return ResourceSearch
	case p == "/graphql" || strings.HasPrefix(p, "/graphql?"):
		return ResourceGraphQL
	default:
		return ResourceCore
	}
}

// Observe records quota headers. X-RateLimit-Resource, when present, names
// the bucket instead of resource. It returns false when the headers carry
// no quota information.
func (t *Tracker) Observe(resource string, header http.Header) bool {
	if t == nil || header == nil {
		return false
	}

	remainingRaw := strings.TrimSpace(header.Get(headerRemaining))
	resetRaw := strings.TrimSpace(header.Get(headerReset))
	if remainingRaw == "" && resetRaw == "" {
		return false
	}

	if named := strings.TrimSpace(header.Get(headerResource)); named != "" {
		resource = named
	}
	if resource == "" {
		resource = ResourceCore
	}

	state := core.RateLimitState{
		Resource:   resource,
		Limit:      atoiOr(header.Get(headerLimit), 0),
		Remaining:  atoiOr(remainingRaw, -1), // -1: unknown, never exhausted
		Used:       atoiOr(header.Get(headerUsed), 0),
		ObservedAt: t.now(),
	}
	if reset, err := strconv.ParseInt(resetRaw, 10, 64); err == nil && reset > 0 {
		state.ResetAt = time.Unix(reset, 0).UTC()
	}

	t.mu.Lock()
	if t.states == nil {
		t.states = make(map[string]core.RateLimitState)
	}
	t.states[resource] = state
	t.mu.Unlock()
	return true
}

// ShouldPreemptivelyWait returns the time until reset when the resource's
// quota is known to be spent.
func (t *Tracker) ShouldPreemptivelyWait(resource string) (time.Duration, bool) {
	if t == nil {
		return 0, false
	}

	t.mu.RLock()
	state, ok := t.states[resource]
	t.mu.RUnlock()
	if !ok {
		return 0, false
	}

	now := t.now()
	if state.Remaining != 0 || !state.ResetAt.After(now) {
		return 0, false
	}
	return state.ResetAt.Sub(now), true
}

// State returns the last observed state for resource.
func (t *Tracker) State(resource string) (core.RateLimitState, bool) {
	if t == nil {
		return core.RateLimitState{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.states[resource]
	return state, ok
}

// Snapshot returns every observed state sorted by resource name.
func (t *Tracker) Snapshot() []core.RateLimitState {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	out := make([]core.RateLimitState, 0, len(t.states))
	for _, state := range t.states {
		out = append(out, state)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

func (t *Tracker) now() time.Time {
	if t != nil && t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}

func atoiOr(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
