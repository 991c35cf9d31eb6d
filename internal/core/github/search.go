package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// MaxSearchResults is the most results GitHub serves for one search query.
const MaxSearchResults = 1000

// SearchOptions controls a search.
type SearchOptions struct {
	Sort  string
	Order string
	Limit int
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 || o.Limit > MaxSearchResults {
		return MaxSearchResults
	}
	return o.Limit
}

// SearchRepositories runs a repository search. Search requests are charged
// to the separate search quota.
func (s *Service) SearchRepositories(ctx context.Context, q string, opts SearchOptions) ([]core.Repository, error) {
	spec, err := searchSpec("/search/repositories", q, opts)
	if err != nil {
		return nil, err
	}
	return list[core.Repository](ctx, s, spec, opts.limit(), "items")
}

// SearchUsers runs a user search.
func (s *Service) SearchUsers(ctx context.Context, q string, opts SearchOptions) ([]core.User, error) {
	spec, err := searchSpec("/search/users", q, opts)
	if err != nil {
		return nil, err
	}
	return list[core.User](ctx, s, spec, opts.limit(), "items")
}

func searchSpec(path, q string, opts SearchOptions) (engine.RequestSpec, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return engine.RequestSpec{}, fmt.Errorf("search query is required")
	}
	switch opts.Order {
	case "", "asc", "desc":
	default:
		return engine.RequestSpec{}, fmt.Errorf("order must be asc or desc, got %q", opts.Order)
	}
	return engine.Get(path, query("q", q, "sort", opts.Sort, "order", opts.Order)), nil
}
