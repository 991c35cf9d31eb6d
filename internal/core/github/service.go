// Package github implements the typed GitHub operations behind each
// command on top of the engine's request pipeline.
package github

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/mygh/mygh/internal/core/engine"
)

// DefaultConcurrency bounds parallel requests for multi-repository calls.
const DefaultConcurrency = 4

// Service exposes GitHub resources as typed operations.
type Service struct {
	client      *engine.Client
	concurrency int
	logger      *logging.Logger
}

// NewService wraps client. concurrency <= 0 selects DefaultConcurrency.
func NewService(client *engine.Client, concurrency int, logger *logging.Logger) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{client: client, concurrency: concurrency, logger: logger}
}

// Client returns the underlying API client.
func (s *Service) Client() *engine.Client {
	return s.client
}

// RepoRef names a repository as owner/name.
type RepoRef struct {
	Owner string
	Name  string
}

// ParseRepo parses "owner/repo".
func ParseRepo(value string) (RepoRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("repository must be in owner/repo format, got %q", value)
	}
	return RepoRef{Owner: owner, Name: name}, nil
}

func (r RepoRef) String() string {
	return r.Owner + "/" + r.Name
}

// path builds /repos/{owner}/{name}/{parts...} with escaped segments.
func (r RepoRef) path(parts ...string) string {
	segments := append([]string{"repos", r.Owner, r.Name}, parts...)
	return buildPath(segments...)
}

func buildPath(segments ...string) string {
	var b strings.Builder
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// userPath returns own when login is empty, else /users/{login}/{suffix}.
func userPath(login, own, suffix string) string {
	login = strings.TrimSpace(login)
	if login == "" {
		return own
	}
	if suffix == "" {
		return buildPath("users", login)
	}
	return buildPath("users", login) + "/" + suffix
}

// query builds url.Values from key/value pairs, skipping empty values.
func query(pairs ...string) url.Values {
	values := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) != "" {
			values.Set(pairs[i], pairs[i+1])
		}
	}
	return values
}

// list collects up to limit items of spec. limit <= 0 fetches everything.
func list[T any](ctx context.Context, s *Service, spec engine.RequestSpec, limit int, itemsField string) ([]T, error) {
	items, err := engine.Collect(engine.Paginate[T](ctx, s.client, spec, engine.PageOptions{
		MaxItems:   limit,
		ItemsField: itemsField,
	}))
	if items == nil {
		items = []T{}
	}
	return items, err
}

// collectFiltered walks spec keeping items that pass keep until limit of
// them are gathered. The cap applies after filtering, so pages are fetched
// at full size.
func collectFiltered[T any](ctx context.Context, s *Service, spec engine.RequestSpec, limit int, keep func(T) bool) ([]T, error) {
	seq := engine.Paginate[T](ctx, s.client, spec, engine.PageOptions{PerPage: pageSizeFor(limit, s.client.PerPage())})
	return takeWhile(seq, limit, keep)
}

func takeWhile[T any](seq iter.Seq2[T, error], limit int, keep func(T) bool) ([]T, error) {
	out := []T{}
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		if !keep(item) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func pageSizeFor(limit, fallback int) int {
	if limit > fallback {
		return engine.MaxPerPage
	}
	return fallback
}

// exists maps a 404 to false for the "is starred" style endpoints that
// answer 204 or 404.
func exists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if engine.KindOf(err) == engine.KindNotFound {
		return false, nil
	}
	return false, err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
