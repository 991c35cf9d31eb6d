package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mygh/mygh/internal/metrics"
)

const (
	DefaultBaseURL    = "https://api.github.com"
	DefaultAccept     = "application/vnd.github+json"
	DefaultAPIVersion = "2022-11-28"
	DefaultUserAgent  = "mygh"
	DefaultTimeout    = 30 * time.Second
)

// CachedResponse is a stored 2xx GET response keyed for conditional requests.
type CachedResponse struct {
	ETag     string
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// ResponseCache stores validators so repeat GETs can be answered with 304,
// which GitHub does not charge against the quota.
type ResponseCache interface {
	Lookup(ctx context.Context, key string) (*CachedResponse, error)
	Save(ctx context.Context, key string, entry CachedResponse) error
	// RecordHit is called when the server confirmed the entry with 304.
	RecordHit(ctx context.Context, key string) error
}

// CacheKey scopes a cached response to the credential and media type.
func CacheKey(cred Credential, accept, rawURL string) string {
	return cred.Fingerprint() + "|" + accept + "|" + rawURL
}

// Executor performs exactly one HTTP exchange per call.
type Executor struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	Tracker    *Tracker
	Timeout    time.Duration
	UserAgent  string
	APIVersion string
	// Limiter optionally paces outgoing requests on the client side.
	Limiter *rate.Limiter
	Cache   ResponseCache
	Logger  *logging.Logger
	Clock   func() time.Time
}

// Execute sends spec with cred's token. Transport failures become network
// errors; a cancelled ctx is returned as ctx.Err().
func (e *Executor) Execute(ctx context.Context, spec RequestSpec, cred Credential) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	method := spec.method()
	target, err := spec.resolve(e.baseURL())
	if err != nil {
		return nil, &Error{Kind: KindValidation, Method: method, URL: spec.Path, Message: err.Error(), Err: err}
	}
	rawURL := target.String()
	resource := ResourceFor(relativeTo(e.baseURL(), spec.Path))

	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &Error{Kind: KindNetwork, Method: method, URL: rawURL, Message: "client rate limiter: " + err.Error(), Err: err}
		}
	}

	var body io.Reader
	if spec.Body != nil {
		payload, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Method: method, URL: rawURL, Message: "encode request body: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(payload)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, rawURL, body)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Method: method, URL: rawURL, Message: err.Error(), Err: err}
	}
	e.setHeaders(req, spec, cred)

	var cached *CachedResponse
	cacheKey := ""
	if e.Cache != nil && method == http.MethodGet {
		cacheKey = CacheKey(cred, req.Header.Get("Accept"), rawURL)
		entry, lookupErr := e.Cache.Lookup(ctx, cacheKey)
		switch {
		case lookupErr != nil:
			metrics.RecordCacheLookup("error")
			logDebug(e.Logger, "Response cache lookup failed", zap.Error(lookupErr))
		case entry != nil && entry.ETag != "":
			cached = entry
			req.Header.Set("If-None-Match", entry.ETag)
		default:
			metrics.RecordCacheLookup("miss")
		}
	}

	requestID := uuid.NewString()
	logDebug(e.Logger, "API request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("url", rawURL),
		zap.String("credential", cred.Fingerprint()),
	)

	started := time.Now()
	resp, err := e.client().Do(req)
	if err != nil {
		metrics.RecordRequest(method, resource, 0, time.Since(started))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Method: method, URL: rawURL, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(started)
	metrics.RecordRequest(method, resource, resp.StatusCode, elapsed)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindNetwork, Method: method, URL: rawURL, StatusCode: resp.StatusCode, Message: "read response body: " + err.Error(), Err: err}
	}

	if e.Tracker.Observe(resource, resp.Header) {
		if state, ok := e.Tracker.State(trackedResource(resource, resp.Header)); ok {
			metrics.SetRateLimitRemaining(state.Resource, state.Remaining)
		}
	}

	logDebug(e.Logger, "API response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.String("rate_remaining", resp.Header.Get(headerRemaining)),
	)

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		metrics.RecordCacheLookup("hit")
		if err := e.Cache.RecordHit(ctx, cacheKey); err != nil {
			logDebug(e.Logger, "Response cache hit not recorded", zap.Error(err))
		}
		header := cached.Header.Clone()
		if header == nil {
			header = make(http.Header)
		}
		for key, values := range resp.Header {
			if strings.HasPrefix(strings.ToLower(key), "x-ratelimit-") {
				header[key] = values
			}
		}
		return &Response{StatusCode: http.StatusOK, Header: header, Body: cached.Body, FromCache: true}, nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if cacheKey != "" {
			e.store(ctx, cacheKey, resp.Header, data)
		}
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
	}

	apiErr := classify(method, rawURL, resp.StatusCode, resp.Header, data, e.now())
	metrics.RecordError(string(apiErr.Kind), apiErr.StatusCode)
	return nil, apiErr
}

func (e *Executor) store(ctx context.Context, key string, header http.Header, body []byte) {
	etag := header.Get("ETag")
	if etag == "" {
		return
	}
	entry := CachedResponse{
		ETag:     etag,
		Header:   cacheableHeader(header),
		Body:     body,
		StoredAt: e.now(),
	}
	if err := e.Cache.Save(ctx, key, entry); err != nil {
		logDebug(e.Logger, "Response cache save failed", zap.Error(err))
	}
}

// cacheableHeader keeps the headers a replayed response needs.
func cacheableHeader(header http.Header) http.Header {
	out := make(http.Header)
	for _, key := range []string{"Link", "Content-Type", "ETag", "Last-Modified"} {
		if values := header.Values(key); len(values) > 0 {
			out[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
		}
	}
	return out
}

func (e *Executor) setHeaders(req *http.Request, spec RequestSpec, cred Credential) {
	accept := spec.Accept
	if accept == "" {
		accept = DefaultAccept
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", e.apiVersion())
	req.Header.Set("User-Agent", e.userAgent())
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred.Token != "" {
		(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"}).SetAuthHeader(req)
	}
}

func trackedResource(resource string, header http.Header) string {
	if named := strings.TrimSpace(header.Get(headerResource)); named != "" {
		return named
	}
	return resource
}

func (e *Executor) baseURL() *url.URL {
	if e.BaseURL != nil {
		return e.BaseURL
	}
	u, _ := url.Parse(DefaultBaseURL)
	return u
}

func (e *Executor) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

func (e *Executor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *Executor) userAgent() string {
	if strings.TrimSpace(e.UserAgent) != "" {
		return e.UserAgent
	}
	return DefaultUserAgent
}

func (e *Executor) apiVersion() string {
	if e.APIVersion != "" {
		return e.APIVersion
	}
	return DefaultAPIVersion
}

func (e *Executor) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

// ParseBaseURL validates an API root such as https://api.github.com.
func ParseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", raw)
	}
	return u, nil
}
