package github

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// RepoListOptions filters a repository listing.
type RepoListOptions struct {
	// Type is all, owner, public, private or member.
	Type string
	// Sort is created, updated, pushed or full_name.
	Sort  string
	Limit int
}

// Repositories lists login's repositories, or the authenticated user's.
func (s *Service) Repositories(ctx context.Context, login string, opts RepoListOptions) ([]core.Repository, error) {
	spec := engine.Get(userPath(login, "/user/repos", "repos"), query("type", opts.Type, "sort", opts.Sort))
	return list[core.Repository](ctx, s, spec, opts.Limit, "")
}

// Repository fetches one repository.
func (s *Service) Repository(ctx context.Context, ref RepoRef) (core.Repository, error) {
	var repo core.Repository
	err := s.client.GetJSON(ctx, ref.path(), nil, &repo)
	return repo, err
}

// RepoResult is the outcome of fetching one repository in a batch.
type RepoResult struct {
	Ref        RepoRef
	Repository *core.Repository
	Err        error
}

type repoJob struct {
	index int
	ref   RepoRef
}

// RepositoryDetails fetches refs concurrently, bounded by the service's
// concurrency. Results keep the order of refs. Per-repository failures such
// as a 404 are reported in the result; authentication failures and primary
// rate limits stop the batch and are returned as the error.
func (s *Service) RepositoryDetails(ctx context.Context, refs []RepoRef) ([]RepoResult, error) {
	if len(refs) == 0 {
		return []RepoResult{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]RepoResult, len(refs))
	jobs := make(chan repoJob)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	setErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	worker := func() {
		defer wg.Done()
		for job := range jobs {
			if ctx.Err() != nil {
				return
			}
			repo, err := s.Repository(ctx, job.ref)
			if err != nil {
				if stopsBatch(err) {
					setErr(err)
					return
				}
				results[job.index] = RepoResult{Ref: job.ref, Err: err}
				continue
			}
			results[job.index] = RepoResult{Ref: job.ref, Repository: &repo}
		}
	}

	concurrency := s.concurrency
	if concurrency > len(refs) {
		concurrency = len(refs)
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

sendLoop:
	for i, ref := range refs {
		select {
		case <-ctx.Done():
			break sendLoop
		case jobs <- repoJob{index: i, ref: ref}:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debug("Fetched repository details",
			zap.Int("repositories", len(refs)),
			zap.Int("concurrency", concurrency))
	}
	return results, nil
}

// stopsBatch reports failures that would repeat for every remaining
// repository.
func stopsBatch(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch engine.KindOf(err) {
	case engine.KindAuthentication, engine.KindPrimaryRateLimit:
		return true
	default:
		return false
	}
}

// Star stars ref for the authenticated user.
func (s *Service) Star(ctx context.Context, ref RepoRef) error {
	_, err := s.client.Do(ctx, engine.RequestSpec{
		Method: http.MethodPut,
		Path:   buildPath("user", "starred", ref.Owner, ref.Name),
	})
	return err
}

// Unstar removes the authenticated user's star from ref.
func (s *Service) Unstar(ctx context.Context, ref RepoRef) error {
	_, err := s.client.Delete(ctx, buildPath("user", "starred", ref.Owner, ref.Name))
	return err
}

// IsStarred reports whether the authenticated user starred ref.
func (s *Service) IsStarred(ctx context.Context, ref RepoRef) (bool, error) {
	_, err := s.client.Get(ctx, buildPath("user", "starred", ref.Owner, ref.Name), nil)
	return exists(err)
}

// Watch subscribes the authenticated user to ref's notifications.
func (s *Service) Watch(ctx context.Context, ref RepoRef) (core.Subscription, error) {
	var sub core.Subscription
	resp, err := s.client.Put(ctx, ref.path("subscription"), map[string]bool{"subscribed": true})
	if err != nil {
		return sub, err
	}
	err = resp.Decode(&sub)
	return sub, err
}

// Unwatch removes the authenticated user's subscription to ref.
func (s *Service) Unwatch(ctx context.Context, ref RepoRef) error {
	_, err := s.client.Delete(ctx, ref.path("subscription"))
	return err
}

// IsWatching reports whether the authenticated user watches ref. GitHub
// answers 404 when there is no subscription.
func (s *Service) IsWatching(ctx context.Context, ref RepoRef) (bool, error) {
	var sub core.Subscription
	err := s.client.GetJSON(ctx, ref.path("subscription"), nil, &sub)
	found, err := exists(err)
	return found && sub.Subscribed, err
}

// Fork forks ref into the authenticated user's account. GitHub creates
// the fork asynchronously and returns it immediately.
func (s *Service) Fork(ctx context.Context, ref RepoRef) (core.Repository, error) {
	var repo core.Repository
	resp, err := s.client.Post(ctx, ref.path("forks"), nil)
	if err != nil {
		return repo, err
	}
	err = resp.Decode(&repo)
	return repo, err
}
