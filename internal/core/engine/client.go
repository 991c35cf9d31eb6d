package engine

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"golang.org/x/time/rate"

	"github.com/mygh/mygh/internal/core"
)

// DefaultPerPage matches GitHub's own default page size.
const DefaultPerPage = 30

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Resolver   CredentialResolver
	Retry      RetryConfig
	Timeout    time.Duration
	UserAgent  string
	PerPage    int
	// RequestsPerSecond paces requests client-side; zero disables pacing.
	RequestsPerSecond float64
	Cache             ResponseCache
	Logger            *logging.Logger

	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

// Client is the API access layer: credential, tracker, executor and retry
// policy for one logical user of the API. Safe for concurrent use.
type Client struct {
	resolver CredentialResolver
	tracker  *Tracker
	executor *Executor
	retrier  *Retrier
	perPage  int
	logger   *logging.Logger
}

// New wires a Client from opts.
func New(opts Options) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker()
	tracker.Clock = opts.Clock

	executor := &Executor{
		BaseURL:    base,
		HTTPClient: opts.HTTPClient,
		Tracker:    tracker,
		Timeout:    opts.Timeout,
		UserAgent:  opts.UserAgent,
		Cache:      opts.Cache,
		Logger:     opts.Logger,
		Clock:      opts.Clock,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		executor.Limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return &Client{
		resolver: opts.Resolver,
		tracker:  tracker,
		executor: executor,
		retrier: &Retrier{
			Doer:    executor,
			Tracker: tracker,
			Config:  opts.Retry,
			Sleep:   opts.Sleep,
			Rand:    opts.Rand,
			Logger:  opts.Logger,
		},
		perPage: perPage,
		logger:  opts.Logger,
	}, nil
}

// Credential resolves the client's token. Resolvers cache their result, so
// this is cheap after the first call.
func (c *Client) Credential(ctx context.Context) (Credential, error) {
	if c.resolver == nil {
		return Credential{}, NewError(KindAuthentication, "no credential resolver configured")
	}
	return c.resolver.Resolve(ctx)
}

// Execute runs spec with an explicit credential through the retry policy.
func (c *Client) Execute(ctx context.Context, spec RequestSpec, cred Credential) (*Response, error) {
	return c.retrier.ExecuteWithRetry(ctx, spec, cred)
}

// Do runs spec with the client's own credential.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	cred, err := c.Credential(ctx)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, spec, cred)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Get(path, query))
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPut, Path: path, Body: body})
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodPatch, Path: path, Body: body})
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, RequestSpec{Method: http.MethodDelete, Path: path})
}

// GetJSON issues a GET and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// RateLimits returns the quota last observed for each resource.
func (c *Client) RateLimits() []core.RateLimitState {
	return c.tracker.Snapshot()
}

// Tracker exposes the client's rate limit tracker.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// PerPage is the default page size for listings.
func (c *Client) PerPage() int {
	return c.perPage
}
