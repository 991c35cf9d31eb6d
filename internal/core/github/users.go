package github

import (
	"context"
	"strings"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// User fetches login's profile, or the authenticated user when login is
// empty.
func (s *Service) User(ctx context.Context, login string) (core.User, error) {
	var user core.User
	err := s.client.GetJSON(ctx, userPath(login, "/user", ""), nil, &user)
	return user, err
}

// StarredOptions filters a starred listing.
type StarredOptions struct {
	// Language keeps only repositories whose primary language matches,
	// case-insensitively.
	Language string
	Sort     string
	Limit    int
}

// Starred lists repositories starred by login (or the authenticated user).
// The language filter runs client-side and Limit counts matches.
func (s *Service) Starred(ctx context.Context, login string, opts StarredOptions) ([]core.Repository, error) {
	spec := engine.Get(userPath(login, "/user/starred", "starred"), query("sort", opts.Sort))

	language := strings.TrimSpace(opts.Language)
	if language == "" {
		return list[core.Repository](ctx, s, spec, opts.Limit, "")
	}
	return collectFiltered(ctx, s, spec, opts.Limit, func(repo core.Repository) bool {
		return strings.EqualFold(repo.Language, language)
	})
}

// GistOptions filters a gist listing.
type GistOptions struct {
	PublicOnly bool
	Limit      int
}

// Gists lists login's gists, or the authenticated user's when login is
// empty.
func (s *Service) Gists(ctx context.Context, login string, opts GistOptions) ([]core.Gist, error) {
	spec := engine.Get(userPath(login, "/gists", "gists"), nil)
	if !opts.PublicOnly {
		return list[core.Gist](ctx, s, spec, opts.Limit, "")
	}
	return collectFiltered(ctx, s, spec, opts.Limit, func(g core.Gist) bool {
		return g.Public
	})
}
