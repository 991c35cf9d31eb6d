// Package auth resolves the bearer token used for GitHub API calls.
//
// Resolution order, first match wins:
//  1. GITHUB_TOKEN
//  2. GH_TOKEN
//  3. `gh auth token` (the GitHub CLI's stored session)
//
// No network validation happens here. An invalid token surfaces as an
// authentication error on the first real request.
package auth

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/core/engine"
)

const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvGHToken     = "GH_TOKEN"
)

// SetupGuidance is shown to users when no credential can be found.
const SetupGuidance = "set the GITHUB_TOKEN environment variable, or run: gh auth login"

// TokenCommand asks an external tool for a token. An empty token with a nil
// error means the tool has no session.
type TokenCommand func(ctx context.Context) (string, error)

// Resolver finds a credential once and caches it for its lifetime.
type Resolver struct {
	Getenv  func(string) string
	Command TokenCommand
	Logger  *logging.Logger

	mu       sync.Mutex
	inflight *resolution
	resolved *resolution
}

type resolution struct {
	done chan struct{}
	cred engine.Credential
	err  error
}

// NewResolver returns a resolver reading the process environment and
// falling back to the gh CLI.
func NewResolver(logger *logging.Logger) *Resolver {
	return &Resolver{
		Getenv:  os.Getenv,
		Command: GHCLIToken,
		Logger:  logger,
	}
}

// Resolve returns the cached credential, resolving it on first use.
// Concurrent callers share a single in-flight resolution.
func (r *Resolver) Resolve(ctx context.Context) (engine.Credential, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		r.mu.Lock()
		if r.resolved != nil {
			res := r.resolved
			r.mu.Unlock()
			return res.cred, res.err
		}

		call := r.inflight
		if call == nil {
			break
		}
		r.mu.Unlock()

		select {
		case <-call.done:
		case <-ctx.Done():
			return engine.Credential{}, ctx.Err()
		}
		// A resolution cancelled by its own caller is not ours to report;
		// go around and start another.
		if !isContextError(call.err) {
			return call.cred, call.err
		}
	}

	call := &resolution{done: make(chan struct{})}
	r.inflight = call
	r.mu.Unlock()

	call.cred, call.err = r.resolve(ctx)

	r.mu.Lock()
	r.inflight = nil
	if !isContextError(call.err) {
		r.resolved = call
	}
	r.mu.Unlock()
	close(call.done)

	return call.cred, call.err
}

func (r *Resolver) resolve(ctx context.Context) (engine.Credential, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if token := strings.TrimSpace(getenv(EnvGitHubToken)); token != "" {
		r.debug(engine.SourceGitHubToken)
		return engine.Credential{Token: token, Source: engine.SourceGitHubToken}, nil
	}
	if token := strings.TrimSpace(getenv(EnvGHToken)); token != "" {
		r.debug(engine.SourceGHToken)
		return engine.Credential{Token: token, Source: engine.SourceGHToken}, nil
	}

	if r.Command != nil {
		token, err := r.Command(ctx)
		if isContextError(err) {
			return engine.Credential{}, err
		}
		if err == nil && strings.TrimSpace(token) != "" {
			r.debug(engine.SourceGHCLI)
			return engine.Credential{Token: strings.TrimSpace(token), Source: engine.SourceGHCLI}, nil
		}
		if err != nil && r.Logger != nil {
			r.Logger.Debug("gh CLI token lookup failed", zap.Error(err))
		}
	}

	// Callers add SetupGuidance when they render the failure.
	return engine.Credential{}, engine.NewError(engine.KindAuthentication, "no GitHub token found")
}

func (r *Resolver) debug(source engine.CredentialSource) {
	if r.Logger != nil {
		r.Logger.Debug("Resolved GitHub credential", zap.String("source", string(source)))
	}
}

// GHCLIToken runs `gh auth token`. A missing binary or a non-zero exit is
// reported as an error; callers treat any error as "no session".
func GHCLIToken(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "gh", "auth", "token").Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
